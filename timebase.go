// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

// timebase derives the two time references of the interface from the
// fixed reference clock: a microsecond strobe for all duration
// counters and the divided target clock whose edges pace the bit
// engines. A new divisor is staged and only latched at a period
// boundary so a running target never sees a shortened half period.
type timebase struct {
	ticksPerMicro uint32
	microPrescale uint32
	microStrobe   bool
	micros        uint64

	div        uint32 // reference ticks per target clock half period
	pendingDiv uint32
	divCount   uint32
	clkPhase   bool // current target clock level
	edgeStrobe bool // target clock toggled on this tick
	risingEdge bool // valid while edgeStrobe is set
}

func (tb *timebase) init(refClockHz uint32, divisor uint32) {
	tpm := refClockHz / 1000000
	if tpm == 0 {
		tpm = 1
	}
	if divisor == 0 {
		divisor = 1
	}

	tb.ticksPerMicro = tpm
	tb.microPrescale = 0
	tb.microStrobe = false
	tb.micros = 0

	tb.div = divisor
	tb.pendingDiv = divisor
	tb.divCount = 0
	tb.clkPhase = false
	tb.edgeStrobe = false
	tb.risingEdge = false
}

// stageDivisor records a new half period divisor. It takes effect at
// the next falling target clock edge, zero is clamped to one.
func (tb *timebase) stageDivisor(divisor uint32) {
	if divisor == 0 {
		divisor = 1
	}

	tb.pendingDiv = divisor
}

func (tb *timebase) divisorPending() bool {
	return tb.pendingDiv != tb.div
}

func (tb *timebase) fallingEdge() bool {
	return tb.edgeStrobe && !tb.risingEdge
}

func (tb *timebase) tick() {
	tb.microStrobe = false
	tb.microPrescale++
	if tb.microPrescale >= tb.ticksPerMicro {
		tb.microPrescale = 0
		tb.micros++
		tb.microStrobe = true
	}

	tb.edgeStrobe = false
	tb.risingEdge = false
	tb.divCount++
	if tb.divCount >= tb.div {
		tb.divCount = 0
		tb.clkPhase = !tb.clkPhase
		tb.edgeStrobe = true
		tb.risingEdge = tb.clkPhase

		if !tb.clkPhase {
			// period boundary
			tb.div = tb.pendingDiv
		}
	}
}
