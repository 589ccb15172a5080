// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"fmt"
)

// Config holds the mutable timing registers of the interface. The
// dispatcher owns one instance, hands it by reference to the bit
// engines and mutates it through the Set commands. All values persist
// until explicitly changed.
type Config struct {
	RefClockHz   uint32
	ClockDivisor uint32 // reference ticks per target clock half period
	Turnaround   uint32 // swd turnaround cycles, 1..4
	Dataphase    bool   // clock a 33 cycle cooloff after WAIT/FAULT
	ResetMicros  uint32 // reset assert and guard duration
}

func DefaultConfig() *Config {
	return &Config{
		RefClockHz:   DefaultRefClockHz,
		ClockDivisor: defaultClockDivisor,
		Turnaround:   defaultTurnaround,
		Dataphase:    false,
		ResetMicros:  defaultResetMicros,
	}
}

// Command is one dispatcher operation. The issuer holds all fields
// stable from Submit until done is reported. Pins carries the masked
// pin word of PinsWrite, Data the operand of the command (write data,
// microseconds, divisor or config bits depending on the id).
type Command struct {
	Id    DapCmd
	APnDP bool
	RnW   bool
	Addr  uint8
	Data  uint32
	Pins  uint16
}

// Result is the outcome of one completed command: the last transaction
// acknowledge, read data, the sticky error flag and the live pin
// snapshot at completion time.
type Result struct {
	Ack  SwdAck
	Data uint32
	Err  bool
	Pins uint8
}

// SwjDap is the debug probe core: a command dispatcher in front of the
// SWD transaction engine, the mode switch sequencer, the reset
// sequencer and the raw pin latch, all sharing one pin set and one
// reference clock. Everything advances on Tick, one call per tick of
// the reference clock.
type SwjDap struct {
	cfg *Config
	tb  timebase
	seq swjSequencer
	swd swdEngine

	jtag JtagEngine
	dev  BusDevice

	bus   SwjBus
	latch uint8

	state         dispatchState
	commandedMode DapMode
	activeMode    DapMode

	cmdIn Command
	goIn  bool

	goFF1   bool
	goFF2   bool
	goArmed bool

	cmd    Command
	engine engineSel

	done    bool
	errFlag bool
	ack     SwdAck
	rdata   uint32

	usLeft   uint32
	tickLeft uint32

	captures uint64
}

func NewSwjDap(cfg *Config) *SwjDap {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.RefClockHz == 0 {
		cfg.RefClockHz = DefaultRefClockHz
	}
	if cfg.ClockDivisor == 0 {
		cfg.ClockDivisor = 1
	}
	if cfg.Turnaround == 0 {
		cfg.Turnaround = 1
	}
	if cfg.Turnaround > maxTurnaround {
		cfg.Turnaround = maxTurnaround
	}

	d := &SwjDap{cfg: cfg}
	d.tb.init(cfg.RefClockHz, cfg.ClockDivisor)
	d.swd.init(cfg)

	d.latch = defaultPinLatch
	d.commandedMode = ModePowerDown
	d.activeMode = ModePowerDown
	d.state = stateIdle
	d.done = true
	d.goArmed = true
	d.ack = AckNone

	d.driveBus()
	d.bus.SwdioIn = true
	d.bus.ResetSense = d.bus.NReset

	logger.Debugf("swj-dap core ready, ref clock %d Hz, divisor %d",
		cfg.RefClockHz, cfg.ClockDivisor)

	return d
}

// Attach connects the hardware boundary. The device is evaluated once
// per tick after the output lines have settled.
func (d *SwjDap) Attach(dev BusDevice) {
	d.dev = dev
}

// AttachJtag connects an external JTAG transaction engine. Without one
// a transaction in JTAG mode completes with the sticky error set.
func (d *SwjDap) AttachJtag(engine JtagEngine) {
	d.jtag = engine
}

func (d *SwjDap) Config() *Config {
	return d.cfg
}

// Submit presents a command and raises the trigger. The fields must
// stay untouched until Done reports true, the trigger must be dropped
// with ReleaseGo before the next submission. Only transactions may be
// re-primed while the trigger is still high.
func (d *SwjDap) Submit(cmd Command) {
	d.cmdIn = cmd
	d.goIn = true
}

func (d *SwjDap) ReleaseGo() {
	d.goIn = false
}

func (d *SwjDap) Done() bool {
	return d.done
}

func (d *SwjDap) Err() bool {
	return d.errFlag
}

func (d *SwjDap) Ack() SwdAck {
	return d.ack
}

func (d *SwjDap) ReadData() uint32 {
	return d.rdata
}

func (d *SwjDap) ActiveMode() DapMode {
	return d.activeMode
}

func (d *SwjDap) CommandedMode() DapMode {
	return d.commandedMode
}

// PinSnapshot returns the live 8 bit diagnostic view of the pin set,
// valid in every mode.
func (d *SwjDap) PinSnapshot() uint8 {
	return d.bus.snapshot()
}

func (d *SwjDap) Micros() uint64 {
	return d.tb.micros
}

// Tick advances the whole core by one reference clock tick: trigger
// synchronizer, timebase, dispatcher, bit engines, pin multiplexer and
// finally the attached bus device.
func (d *SwjDap) Tick() {
	d.goFF2 = d.goFF1
	d.goFF1 = d.goIn
	if !d.goFF2 {
		d.goArmed = true
	}

	d.tb.tick()

	d.step()

	d.seq.tick(&d.tb)
	d.swd.tick(&d.tb, d.bus.SwdioIn)
	if d.jtag != nil && d.tb.edgeStrobe {
		d.jtag.Clock(d.tb.risingEdge, d.bus.Tdo)
	}

	d.driveBus()

	if d.dev != nil {
		d.dev.Eval(&d.bus)
	} else {
		// nothing on the cable: pull ups on the data lines, reset
		// sense mirrors the reset output
		d.bus.SwdioIn = true
		d.bus.Tdo = false
		d.bus.ResetSense = d.bus.NReset
	}
}

// driveBus multiplexes the sub engine outputs onto the shared pin set.
// Exactly one source drives at a time, selected by the active mode.
func (d *SwjDap) driveBus() {
	switch d.activeMode {
	case ModePowerDown:
		d.bus.Swclk = false
		d.bus.SwdioOut = false
		d.bus.SwdioDrive = false
		d.bus.Tdi = false

	case ModeSwj:
		if d.seq.busy || d.seq.pending {
			d.bus.Swclk = d.tb.clkPhase
			d.bus.SwdioOut = d.seq.out
			d.bus.SwdioDrive = true
		} else {
			d.bus.Swclk = d.latch&PinSwclk != 0
			d.bus.SwdioOut = d.latch&PinSwdio != 0
			d.bus.SwdioDrive = d.latch&PinSwdioDir != 0
		}
		d.bus.Tdi = d.latch&PinTdi != 0

	case ModeSwd:
		d.bus.Swclk = d.tb.clkPhase
		d.bus.SwdioOut = d.swd.out
		d.bus.SwdioDrive = d.swd.drive
		d.bus.Tdi = d.latch&PinTdi != 0

	case ModeJtag:
		d.bus.Swclk = d.tb.clkPhase
		d.bus.SwdioDrive = true
		if d.jtag != nil {
			jd := d.jtag.Drive()
			d.bus.SwdioOut = jd.Tms
			d.bus.Tdi = jd.Tdi
		} else {
			d.bus.SwdioOut = true
			d.bus.Tdi = d.latch&PinTdi != 0
		}
	}

	// reset wiring is independent of the active mode
	d.bus.NReset = d.latch&PinNReset != 0 && d.state != stateResetting
	d.bus.PowerEnable = d.activeMode != ModePowerDown
}

// Exec submits one command, ticks the core until it completes and
// drains the go/done handshake so the next call starts clean. This is
// the convenience wrapper hosts use when they own the tick loop
// anyway, the register level Submit/Tick/Done surface stays available
// for issuers with their own loop.
func (d *SwjDap) Exec(cmd Command) (*Result, error) {
	budget := d.execBudget(cmd)
	seen := d.captures

	d.Submit(cmd)

	for d.captures == seen || !d.done {
		if budget == 0 {
			d.ReleaseGo()
			logger.Warnf("command %d stuck, handshake aborted", cmd.Id)
			return nil, NewDapError(fmt.Sprintf("command %d did not complete", cmd.Id), ErrorTimeout)
		}
		budget--
		d.Tick()
	}

	d.ReleaseGo()

	res := &Result{
		Ack:  d.ack,
		Data: d.rdata,
		Err:  d.errFlag,
		Pins: d.PinSnapshot(),
	}

	for d.state != stateIdle || d.goFF1 || d.goFF2 {
		if budget == 0 {
			return res, NewDapError("handshake did not return to idle", ErrorTimeout)
		}
		budget--
		d.Tick()
	}

	return res, nil
}

// execBudget bounds the tick loop of Exec: the configured durations
// plus the longest bit sequence at the effective divisor, with slack
// for the synchronizer and microsecond prescaler.
func (d *SwjDap) execBudget(cmd Command) uint64 {
	div := uint64(d.tb.div)
	if uint64(d.tb.pendingDiv) > div {
		div = uint64(d.tb.pendingDiv)
	}
	if cmd.Id == CmdSetClkDiv && uint64(cmd.Data) > div {
		div = uint64(cmd.Data)
	}

	us := uint64(2*d.cfg.ResetMicros) + 16
	if cmd.Id == CmdWait || cmd.Id == CmdPinsWrite {
		us += uint64(cmd.Data)
	}

	return us*uint64(d.tb.ticksPerMicro) + 256*div + 4096
}
