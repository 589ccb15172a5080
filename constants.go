// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// this code is mainly inspired and based on the openocd project source code
// for detailed information see

// https://sourceforge.net/p/openocd/code

package goswjdap

type DapCmd uint8 // command ids accepted by the dispatcher

const (
	CmdReset        DapCmd = 0  // pulse target reset and wait for release
	CmdPinsWrite    DapCmd = 1  // masked raw pin write in swj mode
	CmdTransact     DapCmd = 2  // one swd (or jtag) register transaction
	CmdSetSwd       DapCmd = 3  // switch shared pins to swd via select sequence
	CmdSetJtag      DapCmd = 4  // switch shared pins to jtag via select sequence
	CmdSetSwj       DapCmd = 5  // raw pin mode, no sequence needed
	CmdSetPowerDown DapCmd = 6  // release all lines, disable target power
	CmdSetClkDiv    DapCmd = 7  // stage new target clock divisor
	CmdSetCfg       DapCmd = 8  // turnaround count and dataphase enable
	CmdWait         DapCmd = 9  // hold for data microseconds
	CmdClrErr       DapCmd = 10 // clear sticky error, nothing else
	CmdSetRstTmr    DapCmd = 11 // reset assert/guard duration in microseconds

	cmdCount = 12
)

type DapMode uint8 // interface modes driving the shared pin set

const (
	ModePowerDown DapMode = 0
	ModeSwj       DapMode = 1
	ModeSwd       DapMode = 2
	ModeJtag      DapMode = 3
)

func (m DapMode) String() string {
	switch m {
	case ModePowerDown:
		return "powerdown"
	case ModeSwj:
		return "swj"
	case ModeSwd:
		return "swd"
	case ModeJtag:
		return "jtag"
	default:
		return "unknown"
	}
}

// SwdAck holds the raw 3 bit acknowledge field of an swd transaction,
// lsb first as sampled from the wire. Values other than Ok, Wait and
// Fault indicate a protocol error (target not driving, lost sync).
type SwdAck uint8

const (
	AckNone  SwdAck = 0x00 // no transaction executed yet
	AckOk    SwdAck = 0x01
	AckWait  SwdAck = 0x02
	AckFault SwdAck = 0x04
)

func (a SwdAck) Ok() bool {
	return a == AckOk
}

// Retryable reports whether the target answered with WAIT or FAULT,
// which an issuer may handle by retrying or clearing sticky flags.
func (a SwdAck) Retryable() bool {
	return a == AckWait || a == AckFault
}

// ProtocolError reports an acknowledge outside the three defined codes.
func (a SwdAck) ProtocolError() bool {
	return a != AckOk && a != AckWait && a != AckFault && a != AckNone
}

func (a SwdAck) String() string {
	switch a {
	case AckNone:
		return "NONE"
	case AckOk:
		return "OK"
	case AckWait:
		return "WAIT"
	case AckFault:
		return "FAULT"
	default:
		return "PROTOCOL"
	}
}

// Pin bit positions, shared by the pin write command word (low byte
// value, high byte mask), the driven pin latch and the live snapshot.
const (
	PinSwclk      uint8 = 0x01 // target interface clock
	PinSwdio      uint8 = 0x02 // data line (tms in jtag mode)
	PinTdi        uint8 = 0x04
	PinTdo        uint8 = 0x08 // read only
	PinSwdioDir   uint8 = 0x10 // swwr, true while the probe drives swdio
	PinConstHigh  uint8 = 0x20 // read only, always 1
	PinResetSense uint8 = 0x40 // read only, target out of reset
	PinNReset     uint8 = 0x80 // active low target reset output

	// TDO, the constant bit and the reset sense input cannot be driven.
	pinWritableMask uint8 = PinSwclk | PinSwdio | PinTdi | PinSwdioDir | PinNReset

	// power up latch: swdio high and driven, tdi high, nreset released
	defaultPinLatch uint8 = PinSwdio | PinTdi | PinSwdioDir | PinNReset
)

// ARM SWJ-DP switching sequence framing (ADIv5 B5.3): at least 50 clocks
// with the line high, the 16 bit select pattern lsb first, another 50
// clocks high and finally two idle low clocks. The step thresholds count
// target clock falling edges and must match the targets exactly.
const (
	swjSeqPatternStart uint32 = 50  // first pattern bit position
	swjSeqPatternEnd   uint32 = 65  // last pattern bit position
	swjSeqTrailerEnd   uint32 = 115 // last high framing position
	swjSeqDone         uint32 = 118 // total falling edges in the sequence

	swjPatternToSwd  uint16 = 0xE79E
	swjPatternToJtag uint16 = 0xE73C
)

// SWD request header bit positions (ADIv5 B4.2.1). The header is sent
// lsb first: start, APnDP, RnW, A[2], A[3], parity, stop, park.
const (
	swdHeaderStart  uint8 = 0x01
	swdHeaderApNDp  uint8 = 0x02
	swdHeaderRnW    uint8 = 0x04
	swdHeaderAddr2  uint8 = 0x08
	swdHeaderAddr3  uint8 = 0x10
	swdHeaderParity uint8 = 0x20
	swdHeaderPark   uint8 = 0x80
)

// Debug port register address selectors, the two A[3:2] bits of a
// request header. Useful defaults for issuers and tests.
const (
	DpRegIdcode   uint8 = 0x0 // DPIDR on read, ABORT on write
	DpRegCtrlStat uint8 = 0x1
	DpRegSelect   uint8 = 0x2 // RESEND on read, SELECT on write
	DpRegRdbuff   uint8 = 0x3
)

// Timing defaults. The reference clock is a fixed oscillator; all
// timing registers hold their reset values until a Set command
// overwrites them.
const (
	DefaultRefClockHz   uint32 = 48000000
	defaultClockDivisor uint32 = 32 // reference ticks per target half period
	defaultTurnaround   uint32 = 1  // swd bus turnaround cycles, 1..4
	defaultResetMicros  uint32 = 300

	maxTurnaround uint32 = 4
)

// Host link framing. A command frame carries one dispatcher command,
// a response frame carries ack, sticky error, pin snapshot and read
// data. Both are fixed length with a trailing crc16.
const (
	frameSync     uint8 = 0x7E
	frameCmdLen         = 12
	frameRespLen        = 10
	frameStatusAck      = 0x07 // ack field in the response status byte
	frameStatusErr      = 0x08 // sticky error flag in the status byte

	frameFlagRnW    uint8 = 0x01
	frameFlagApNDp  uint8 = 0x02
	frameFlagAddr   uint8 = 0x0C // two address selector bits
	frameFlagAddrLs       = 2
)
