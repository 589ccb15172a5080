// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

// SimTransfer is one register access as the simulated target saw it.
type SimTransfer struct {
	APnDP    bool
	RnW      bool
	Addr     uint8
	Ack      SwdAck
	Data     uint32
	ParityOK bool
}

type simPhase uint8

const (
	simIdle simPhase = iota
	simHeader
	simTrn
	simAck
	simRData
	simTrnEnd
	simTrnToWData
	simWData
	simCooloff
	simAwaitReset
)

// SwdTargetSim is a protocol level model of an SWJ-DP target sitting
// on the bus. It boots in JTAG mode like real silicon: it answers SWD
// traffic only after the JTAG to SWD selection alphabet, preceded by a
// line reset of at least 50 high bits, has been observed. A line reset
// recovers it from any desync, an invalid header locks it out until
// the next line reset. Acknowledge and payload cells follow the
// engine's configuration because both sides share the same Config.
//
// Fault injection: QueueAck forces acknowledges for upcoming
// transactions, CorruptNextParity flips one read parity bit, Muted
// stops the model from driving so the probe samples the pull up.
type SwdTargetSim struct {
	cfg *Config

	Idcode            uint32
	Muted             bool
	CorruptNextParity bool

	// target clock ticks between reset release and the sense line
	// confirming it
	ReleaseDelayTicks int

	Transfers []SimTransfer

	ackQueue []SwdAck

	prevClk   bool
	resetHeld bool
	releaseIn int

	onesRun  uint32
	armed    bool
	patShift uint16
	patBits  uint32

	swdActive bool

	phase     simPhase
	bitIdx    uint32
	cellsLeft uint32
	header    uint8
	req       TransactRequest
	ack       SwdAck
	shift     uint32
	sampPar   bool

	drive bool
	out   bool

	dpRegs [4]uint32
	apRegs [4]uint32
}

func NewSwdTargetSim(cfg *Config) *SwdTargetSim {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &SwdTargetSim{
		cfg:    cfg,
		Idcode: 0x2BA01477,
	}
}

// QueueAck forces the acknowledges of the next transactions, first
// queued first served. An empty queue answers OK.
func (s *SwdTargetSim) QueueAck(acks ...SwdAck) {
	s.ackQueue = append(s.ackQueue, acks...)
}

func (s *SwdTargetSim) DpReg(addr uint8) uint32 {
	return s.dpRegs[addr&0x3]
}

func (s *SwdTargetSim) ApReg(addr uint8) uint32 {
	return s.apRegs[addr&0x3]
}

func (s *SwdTargetSim) SetDpReg(addr uint8, value uint32) {
	s.dpRegs[addr&0x3] = value
}

func (s *SwdTargetSim) SetApReg(addr uint8, value uint32) {
	s.apRegs[addr&0x3] = value
}

// SwdSelected reports whether the model currently answers SWD traffic.
func (s *SwdTargetSim) SwdSelected() bool {
	return s.swdActive
}

func (s *SwdTargetSim) Eval(bus *SwjBus) {
	if !bus.PowerEnable {
		// cold target: nothing drives, nothing answers
		s.phase = simIdle
		s.drive = false
		s.swdActive = false
		s.resetHeld = false
		s.prevClk = bus.Swclk
		bus.SwdioIn = true
		bus.Tdo = false
		bus.ResetSense = false
		return
	}

	if !bus.NReset {
		s.resetHeld = true
		s.releaseIn = s.ReleaseDelayTicks
		bus.ResetSense = false
	} else if s.resetHeld {
		if s.releaseIn > 0 {
			s.releaseIn--
			bus.ResetSense = false
		} else {
			s.resetHeld = false
			bus.ResetSense = true
		}
	} else {
		bus.ResetSense = true
	}

	rising := bus.Swclk && !s.prevClk
	falling := !bus.Swclk && s.prevClk
	s.prevClk = bus.Swclk

	if rising {
		s.onRising(bus.SwdioLine())
	}
	if falling {
		s.onFalling()
	}

	if s.drive {
		bus.SwdioIn = s.out
	} else {
		bus.SwdioIn = true // pull up
	}
	bus.Tdo = false
}

// lineReset puts the model back into a known state: parser idle, any
// lockout cleared, the selection watcher armed for the 16 bits that
// follow the run of ones.
func (s *SwdTargetSim) lineReset() {
	s.phase = simIdle
	s.drive = false
	s.armed = true
	s.patShift = 0
	s.patBits = 0
}

func (s *SwdTargetSim) matchPattern() {
	s.armed = false

	switch s.patShift {
	case swjPatternToSwd:
		s.swdActive = true
	case swjPatternToJtag:
		s.swdActive = false
	}
}

// onRising samples the resolved line level: selection watcher first,
// then the line reset detector, then the packet parser.
func (s *SwdTargetSim) onRising(line bool) {
	if s.armed && s.patBits < 16 {
		if line {
			s.patShift |= 1 << s.patBits
		}
		s.patBits++
		if s.patBits == 16 {
			s.matchPattern()
		}
	}

	if line {
		s.onesRun++
		if s.onesRun >= 50 {
			s.lineReset()
		}
	} else {
		s.onesRun = 0
	}

	if !s.swdActive {
		return
	}

	switch s.phase {
	case simIdle:
		if line {
			s.header = 0x01
			s.bitIdx = 1
			s.phase = simHeader
		}

	case simHeader:
		if s.bitIdx < 8 {
			if line {
				s.header |= 1 << s.bitIdx
			}
			s.bitIdx++
		}

	case simWData:
		if s.bitIdx < 32 {
			if line {
				s.shift |= 1 << s.bitIdx
			}
		} else if s.bitIdx == 32 {
			s.sampPar = line
		}
	}
}

// onFalling advances the cell state machine, mirroring the probe
// engine's bit cell boundaries.
func (s *SwdTargetSim) onFalling() {
	if !s.swdActive {
		return
	}

	switch s.phase {
	case simHeader:
		if s.bitIdx >= 8 {
			s.acceptHeader()
		}

	case simTrn:
		s.cellsLeft--
		if s.cellsLeft == 0 {
			s.beginAck()
		}

	case simAck:
		s.bitIdx++
		if s.bitIdx < 3 {
			s.out = (uint8(s.ack)>>s.bitIdx)&1 != 0
		} else {
			s.routeAfterAck()
		}

	case simRData:
		s.bitIdx++
		if s.bitIdx < 32 {
			s.out = (s.shift>>s.bitIdx)&1 != 0
		} else if s.bitIdx == 32 {
			parity := parity_u32(s.shift)
			if s.CorruptNextParity {
				parity = !parity
				s.CorruptNextParity = false
			}
			s.out = parity
		} else {
			s.drive = false
			s.cellsLeft = s.cfg.Turnaround
			s.phase = simTrnEnd
			s.record(s.shift, true)
		}

	case simTrnEnd:
		s.cellsLeft--
		if s.cellsLeft == 0 {
			s.phase = simIdle
		}

	case simTrnToWData:
		s.cellsLeft--
		if s.cellsLeft == 0 {
			s.phase = simWData
			s.bitIdx = 0
			s.shift = 0
		}

	case simWData:
		s.bitIdx++
		if s.bitIdx >= 33 {
			parityOK := parity_u32(s.shift) == s.sampPar
			if s.ack.Ok() && parityOK {
				s.writeReg(s.req.APnDP, s.req.Addr, s.shift)
			}
			s.record(s.shift, parityOK)
			s.phase = simIdle
		}

	case simCooloff:
		s.cellsLeft--
		if s.cellsLeft == 0 {
			s.record(0, true)
			s.phase = simIdle
		}
	}
}

// acceptHeader validates the captured request header at the first
// turnaround boundary. Bad parity, stop or park locks the model out
// until the next line reset, exactly like a confused target that
// stops answering.
func (s *SwdTargetSim) acceptHeader() {
	content := (s.header >> 1) & 0x0F
	parityOK := parity_u32(uint32(content)) == (s.header&swdHeaderParity != 0)
	stopOK := s.header&0x40 == 0
	parkOK := s.header&swdHeaderPark != 0

	if !parityOK || !stopOK || !parkOK || s.Muted {
		s.phase = simAwaitReset
		return
	}

	s.req = TransactRequest{
		APnDP: s.header&swdHeaderApNDp != 0,
		RnW:   s.header&swdHeaderRnW != 0,
	}
	s.req.Addr = 0
	if s.header&swdHeaderAddr2 != 0 {
		s.req.Addr |= 0x1
	}
	if s.header&swdHeaderAddr3 != 0 {
		s.req.Addr |= 0x2
	}

	if len(s.ackQueue) > 0 {
		s.ack = s.ackQueue[0]
		s.ackQueue = s.ackQueue[1:]
	} else {
		s.ack = AckOk
	}

	s.cellsLeft = s.cfg.Turnaround
	s.phase = simTrn
}

func (s *SwdTargetSim) beginAck() {
	s.drive = true
	s.bitIdx = 0
	s.out = uint8(s.ack)&1 != 0
	s.phase = simAck
}

// routeAfterAck is the falling edge that ends the acknowledge cells:
// OK reads keep the target driving data, OK writes hand the bus back
// for the payload, WAIT and FAULT follow the shared dataphase setting.
func (s *SwdTargetSim) routeAfterAck() {
	dataphase := s.ack.Ok() || (s.ack.Retryable() && s.cfg.Dataphase)

	if s.req.RnW {
		if s.ack.Ok() {
			s.shift = s.readReg(s.req.APnDP, s.req.Addr)
			s.bitIdx = 0
			s.out = s.shift&1 != 0
			s.phase = simRData
			return
		}

		s.drive = false
		if dataphase {
			s.cellsLeft = 33 + s.cfg.Turnaround
			s.phase = simCooloff
		} else {
			s.cellsLeft = s.cfg.Turnaround
			s.phase = simTrnEnd
			s.record(0, true)
		}
		return
	}

	s.drive = false
	if s.ack.Ok() {
		s.cellsLeft = s.cfg.Turnaround
		s.phase = simTrnToWData
		return
	}

	if dataphase {
		s.cellsLeft = s.cfg.Turnaround + 33
		s.phase = simCooloff
	} else {
		s.cellsLeft = s.cfg.Turnaround
		s.phase = simTrnEnd
		s.record(0, true)
	}
}

func (s *SwdTargetSim) record(data uint32, parityOK bool) {
	s.Transfers = append(s.Transfers, SimTransfer{
		APnDP:    s.req.APnDP,
		RnW:      s.req.RnW,
		Addr:     s.req.Addr,
		Ack:      s.ack,
		Data:     data,
		ParityOK: parityOK,
	})
}

func (s *SwdTargetSim) readReg(apndp bool, addr uint8) uint32 {
	if apndp {
		return s.apRegs[addr&0x3]
	}
	if addr == DpRegIdcode {
		return s.Idcode
	}

	return s.dpRegs[addr&0x3]
}

func (s *SwdTargetSim) writeReg(apndp bool, addr uint8, value uint32) {
	if apndp {
		s.apRegs[addr&0x3] = value
	} else {
		s.dpRegs[addr&0x3] = value
	}
}
