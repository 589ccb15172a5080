// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

// swjSequencer shifts the SWJ-DP select sequence onto the data line,
// one bit per target clock falling edge: 50 clocks line reset, the 16
// pattern bits lsb first, 50 more clocks line reset and two idle low
// clocks. The probe owns the line for the whole sequence.
type swjSequencer struct {
	pending bool
	busy    bool
	step    uint32
	pattern uint16
	out     bool
}

// start arms the sequencer with the select pattern of the destination
// mode. The sequence begins at the next falling target clock edge, a
// restart while busy abandons the old sequence cleanly.
func (s *swjSequencer) start(pattern uint16) {
	s.pattern = pattern
	s.pending = true
}

func (s *swjSequencer) level(step uint32) bool {
	switch {
	case step < swjSeqPatternStart:
		return true
	case step <= swjSeqPatternEnd:
		return (s.pattern>>(step-swjSeqPatternStart))&1 == 1
	case step <= swjSeqTrailerEnd:
		return true
	default:
		return false
	}
}

func (s *swjSequencer) tick(tb *timebase) {
	if !tb.fallingEdge() {
		return
	}

	if s.pending {
		s.pending = false
		s.busy = true
		s.step = 0
		s.out = s.level(0)
		return
	}

	if !s.busy {
		return
	}

	s.step++
	if s.step >= swjSeqDone {
		s.busy = false
		s.out = false
		return
	}

	s.out = s.level(s.step)
}
