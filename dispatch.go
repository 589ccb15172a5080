// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"github.com/boljen/go-bitmap"
)

type dispatchState uint8

const (
	stateIdle dispatchState = iota
	stateResetting
	stateResetGuard
	statePinWriteWait
	stateWaitSubEngineStart
	stateWaitSubEngineFinish
	stateWaitGoClear
	stateWaitTimeout
	stateWaitClockChange
	stateEstablishMode
)

func (s dispatchState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateResetting:
		return "Resetting"
	case stateResetGuard:
		return "ResetGuard"
	case statePinWriteWait:
		return "PinWriteWait"
	case stateWaitSubEngineStart:
		return "WaitSubEngineStart"
	case stateWaitSubEngineFinish:
		return "WaitSubEngineFinish"
	case stateWaitGoClear:
		return "WaitGoClear"
	case stateWaitTimeout:
		return "WaitTimeout"
	case stateWaitClockChange:
		return "WaitClockChange"
	case stateEstablishMode:
		return "EstablishMode"
	default:
		return "unknown"
	}
}

type engineSel uint8

const (
	engineNone engineSel = iota
	engineSwd
	engineJtag
	engineSeq
)

// valid_cmds marks the accepted command ids, ids outside the table
// complete the handshake with the sticky error set.
var valid_cmds = bitmap.New(16)

func init() {
	for id := 0; id < cmdCount; id++ {
		valid_cmds.Set(id, true)
	}
}

// step advances the dispatcher by one tick. The timebase has already
// ticked, the bit engines run afterwards, so engine activity started
// here becomes visible to the state machine one tick later at the
// earliest. The wait states absorb exactly that.
func (d *SwjDap) step() {
	switch d.state {
	case stateIdle:
		if d.goFF2 && d.goArmed {
			d.capture()
		}

	case stateResetting:
		d.stepResetting()

	case stateResetGuard:
		d.stepResetGuard()

	case statePinWriteWait:
		if d.tickLeft > 0 {
			d.tickLeft--
			if d.tickLeft == 0 {
				d.complete()
			}
			return
		}
		if d.tb.microStrobe && d.usLeft > 0 {
			d.usLeft--
		}
		if d.usLeft == 0 {
			d.complete()
		}

	case stateWaitSubEngineStart:
		if d.engineBusy() {
			d.state = stateWaitSubEngineFinish
		}

	case stateWaitSubEngineFinish:
		if !d.engineBusy() {
			d.collectEngine()
		}

	case stateWaitGoClear:
		if !d.goFF2 {
			d.state = stateIdle
		}

	case stateWaitTimeout:
		if d.tb.microStrobe && d.usLeft > 0 {
			d.usLeft--
			if d.usLeft == 0 {
				d.complete()
			}
		}

	case stateWaitClockChange:
		if !d.tb.divisorPending() {
			d.cfg.ClockDivisor = d.tb.div
			d.complete()
		}

	case stateEstablishMode:
		d.activeMode = d.commandedMode
		logger.Debugf("interface mode established: %s", d.activeMode)
		d.complete()
	}
}

// capture latches the presented command on the synchronized trigger
// edge. The sticky error always clears here, at the start of the
// accepted command, never earlier.
func (d *SwjDap) capture() {
	d.cmd = d.cmdIn
	d.goArmed = false
	d.done = false
	d.errFlag = false
	d.engine = engineNone
	d.captures++

	if int(d.cmd.Id) >= 16 || !valid_cmds.Get(int(d.cmd.Id)) {
		logger.Debugf("unknown command id %d", d.cmd.Id)
		d.raiseError()
		return
	}

	logger.Tracef("command %d captured, data 0x%08x", d.cmd.Id, d.cmd.Data)

	switch d.cmd.Id {
	case CmdReset:
		d.startReset()

	case CmdPinsWrite:
		d.activeMode = ModeSwj
		d.latch = applyPinWord(d.latch, d.cmd.Pins)
		if d.cmd.Data != 0 {
			d.usLeft = d.cmd.Data
			d.tickLeft = 0
		} else {
			d.usLeft = 0
			d.tickLeft = d.tb.div
		}
		d.state = statePinWriteWait

	case CmdTransact:
		d.startTransact()

	case CmdSetSwd:
		d.commandedMode = ModeSwd
		d.activeMode = ModeSwj
		d.seq.start(swjPatternToSwd)
		d.engine = engineSeq
		d.state = stateWaitSubEngineStart

	case CmdSetJtag:
		d.commandedMode = ModeJtag
		d.activeMode = ModeSwj
		d.seq.start(swjPatternToJtag)
		d.engine = engineSeq
		d.state = stateWaitSubEngineStart

	case CmdSetSwj:
		d.commandedMode = ModeSwj
		d.activeMode = ModeSwj
		d.complete()

	case CmdSetPowerDown:
		d.commandedMode = ModePowerDown
		d.activeMode = ModePowerDown
		d.complete()

	case CmdSetClkDiv:
		d.tb.stageDivisor(d.cmd.Data)
		d.state = stateWaitClockChange

	case CmdSetCfg:
		d.cfg.Turnaround = (d.cmd.Data & 0x3) + 1
		d.cfg.Dataphase = d.cmd.Data&0x4 != 0
		d.complete()

	case CmdWait:
		d.usLeft = d.cmd.Data
		if d.usLeft == 0 {
			d.complete()
		} else {
			d.state = stateWaitTimeout
		}

	case CmdClrErr:
		d.complete()

	case CmdSetRstTmr:
		d.cfg.ResetMicros = d.cmd.Data
		d.complete()
	}
}

// startTransact engages the transaction engine selected by the
// commanded mode. Raw pin and powered down modes have no transaction
// engine, requesting one there is a protocol misuse.
func (d *SwjDap) startTransact() {
	req := TransactRequest{
		APnDP: d.cmd.APnDP,
		RnW:   d.cmd.RnW,
		Addr:  d.cmd.Addr & 0x3,
		Data:  d.cmd.Data,
	}

	switch d.commandedMode {
	case ModeSwd:
		d.activeMode = ModeSwd
		d.swd.start(req)
		d.engine = engineSwd
		d.state = stateWaitSubEngineStart

	case ModeJtag:
		if d.jtag == nil {
			logger.Debug("transaction requested in jtag mode without an attached engine")
			d.raiseError()
			return
		}
		d.activeMode = ModeJtag
		d.jtag.Start(req)
		d.engine = engineJtag
		d.state = stateWaitSubEngineStart

	default:
		logger.Debugf("transaction requested while commanded mode is %s", d.commandedMode)
		d.raiseError()
	}
}

func (d *SwjDap) engineBusy() bool {
	switch d.engine {
	case engineSwd:
		return d.swd.pending || d.swd.busy
	case engineJtag:
		return d.jtag.Busy()
	case engineSeq:
		return d.seq.pending || d.seq.busy
	default:
		return false
	}
}

// collectEngine copies the finished engine's results upward.
// Transactions take the streaming exit, a completed select sequence
// still has to establish the destination mode.
func (d *SwjDap) collectEngine() {
	switch d.engine {
	case engineSwd:
		d.ack, d.rdata = d.swd.result()
		if d.swd.transferErr() {
			d.errFlag = true
		}
		d.engine = engineNone
		d.completeStreaming()

	case engineJtag:
		d.ack = d.jtag.Ack()
		d.rdata = d.jtag.Data()
		if d.jtag.Err() {
			d.errFlag = true
		}
		d.engine = engineNone
		d.completeStreaming()

	case engineSeq:
		d.engine = engineNone
		d.state = stateEstablishMode
	}
}

// complete finishes a command through the mandatory go clear cycle.
func (d *SwjDap) complete() {
	d.done = true
	d.state = stateWaitGoClear
}

// completeStreaming finishes a transaction straight into Idle and
// re-arms the trigger, so an issuer holding go high streams the next
// transaction without the go clear detour.
func (d *SwjDap) completeStreaming() {
	d.done = true
	d.goArmed = true
	d.state = stateIdle
}

func (d *SwjDap) raiseError() {
	d.errFlag = true
	d.complete()
}
