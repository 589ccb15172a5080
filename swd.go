// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// this code is mainly inspired and based on the openocd project source code
// for detailed information see

// https://sourceforge.net/p/openocd/code

package goswjdap

// TransactRequest describes one ADI register access: debug port or
// access port, read or write, the two A[3:2] address bits and the
// write payload.
type TransactRequest struct {
	APnDP bool
	RnW   bool
	Addr  uint8
	Data  uint32
}

type swdPhase uint8

const (
	swdIdle swdPhase = iota
	swdHeader
	swdTrnToTarget
	swdAck
	swdRData
	swdTrnToHost
	swdWData
)

// swdEngine executes one SWD packet exchange per activation (ADIv5
// B4.2): the 8 bit request header, a turnaround gap, the 3 bit
// acknowledge driven by the target, then 32 data bits plus parity in
// the direction the request selects. A WAIT or FAULT acknowledge
// skips the data phase unless the dataphase cooloff is enabled, in
// which case the 33 cycles are clocked anyway and their content is
// discarded. Bit cells advance on target clock falling edges, the
// receiving side samples on rising edges.
type swdEngine struct {
	cfg *Config

	pending bool
	busy    bool

	req    TransactRequest
	header uint8

	phase  swdPhase
	bitIdx uint32
	shift  uint32

	writeAfterTrn bool
	wdataDummy    bool

	ack        SwdAck
	rdata      uint32
	parityErr  bool
	protoErr   bool
	sampParity bool

	out   bool
	drive bool
}

func (e *swdEngine) init(cfg *Config) {
	e.cfg = cfg
	e.phase = swdIdle
	e.drive = true
	e.out = false
}

// start arms the engine with one request. The transaction begins at
// the next target clock falling edge so the first bit cell is always
// a full half period wide.
func (e *swdEngine) start(req TransactRequest) {
	e.req = req
	e.pending = true
}

func (e *swdEngine) result() (SwdAck, uint32) {
	return e.ack, e.rdata
}

// transferErr reports a parity mismatch on read data or an acknowledge
// no target would drive, both surfaced as the dispatcher sticky error.
func (e *swdEngine) transferErr() bool {
	return e.parityErr || e.protoErr
}

func buildSwdHeader(req TransactRequest) uint8 {
	header := swdHeaderStart | swdHeaderPark
	ones := 0

	if req.APnDP {
		header |= swdHeaderApNDp
		ones++
	}
	if req.RnW {
		header |= swdHeaderRnW
		ones++
	}
	if req.Addr&0x1 != 0 {
		header |= swdHeaderAddr2
		ones++
	}
	if req.Addr&0x2 != 0 {
		header |= swdHeaderAddr3
		ones++
	}
	if ones&1 == 1 {
		header |= swdHeaderParity
	}

	return header
}

func (e *swdEngine) tick(tb *timebase, swdioIn bool) {
	if tb.edgeStrobe && tb.risingEdge {
		e.sample(swdioIn)
	}

	if tb.fallingEdge() {
		e.advance()
	}
}

// sample captures the target driven line on rising clock edges.
func (e *swdEngine) sample(swdioIn bool) {
	if !e.busy {
		return
	}

	switch e.phase {
	case swdAck:
		if swdioIn {
			e.ack |= 1 << e.bitIdx
		}

	case swdRData:
		if e.bitIdx < 32 {
			if swdioIn {
				e.shift |= 1 << e.bitIdx
			}
		} else {
			e.sampParity = swdioIn
		}
	}
}

// advance moves to the next bit cell on a falling clock edge and sets
// up the line for it. Direction changes happen exactly on turnaround
// cell boundaries.
func (e *swdEngine) advance() {
	if e.pending {
		e.pending = false
		e.busy = true
		e.header = buildSwdHeader(e.req)
		e.phase = swdHeader
		e.bitIdx = 0
		e.shift = 0
		e.ack = 0
		e.rdata = 0
		e.parityErr = false
		e.protoErr = false
		e.drive = true
		e.out = e.header&0x01 != 0
		return
	}

	if !e.busy {
		e.drive = true
		e.out = false
		return
	}

	switch e.phase {
	case swdHeader:
		e.bitIdx++
		if e.bitIdx < 8 {
			e.out = (e.header>>e.bitIdx)&1 != 0
		} else {
			e.phase = swdTrnToTarget
			e.bitIdx = 0
			e.drive = false
		}

	case swdTrnToTarget:
		e.bitIdx++
		if e.bitIdx >= e.cfg.Turnaround {
			e.phase = swdAck
			e.bitIdx = 0
		}

	case swdAck:
		e.bitIdx++
		if e.bitIdx >= 3 {
			e.evalAck()
		}

	case swdRData:
		e.bitIdx++
		if e.bitIdx >= 33 {
			if e.ack.Ok() {
				e.rdata = e.shift
				e.parityErr = parity_u32(e.shift) != e.sampParity
			}
			e.phase = swdTrnToHost
			e.bitIdx = 0
		}

	case swdTrnToHost:
		e.bitIdx++
		if e.bitIdx >= e.cfg.Turnaround {
			e.drive = true
			if e.writeAfterTrn {
				e.phase = swdWData
				e.bitIdx = 0
				if e.wdataDummy {
					e.shift = 0
				} else {
					e.shift = e.req.Data
				}
				e.out = e.shift&1 != 0
			} else {
				e.finish()
			}
		}

	case swdWData:
		e.bitIdx++
		if e.bitIdx < 32 {
			e.out = (e.shift>>e.bitIdx)&1 != 0
		} else if e.bitIdx == 32 {
			e.out = !e.wdataDummy && parity_u32(e.shift)
		} else {
			e.finish()
		}
	}
}

// evalAck routes the transaction after the acknowledge cells: data
// phase for OK, optional cooloff for WAIT and FAULT, straight back to
// the host for anything a healthy target would never drive.
func (e *swdEngine) evalAck() {
	dataphase := e.ack.Ok() || (e.ack.Retryable() && e.cfg.Dataphase)
	if e.ack.ProtocolError() || e.ack == AckNone {
		e.protoErr = true
		dataphase = false
	}

	e.writeAfterTrn = false

	if e.req.RnW {
		if dataphase {
			e.phase = swdRData
			e.bitIdx = 0
			e.shift = 0
			return
		}

		e.phase = swdTrnToHost
		e.bitIdx = 0
		return
	}

	e.writeAfterTrn = dataphase
	e.wdataDummy = !e.ack.Ok()
	e.phase = swdTrnToHost
	e.bitIdx = 0
}

func (e *swdEngine) finish() {
	e.busy = false
	e.phase = swdIdle
	e.drive = true
	e.out = false
}
