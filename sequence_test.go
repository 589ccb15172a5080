// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"testing"
)

// collectSequence runs the sequencer to completion and returns the
// line level of every falling edge step.
func collectSequence(t *testing.T, pattern uint16) []bool {
	t.Helper()

	var tb timebase
	tb.init(48000000, 1)

	var seq swjSequencer
	seq.start(pattern)

	levels := make([]bool, 0, swjSeqDone)
	for i := 0; i < 1<<16; i++ {
		tb.tick()
		seq.tick(&tb)
		if tb.fallingEdge() && seq.busy {
			levels = append(levels, seq.out)
		}
		if len(levels) == int(swjSeqDone) && !seq.pending {
			break
		}
	}

	if len(levels) != int(swjSeqDone) {
		t.Fatalf("collected %d steps, want %d", len(levels), swjSeqDone)
	}

	return levels
}

func TestSelectSequenceBitstream(t *testing.T) {
	tests := []struct {
		name    string
		pattern uint16
	}{
		{"jtag to swd", swjPatternToSwd},
		{"swd to jtag", swjPatternToJtag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels := collectSequence(t, tt.pattern)

			for step, lv := range levels {
				var want bool
				switch {
				case step < int(swjSeqPatternStart):
					want = true
				case step <= int(swjSeqPatternEnd):
					want = (tt.pattern>>(step-int(swjSeqPatternStart)))&1 == 1
				case step <= int(swjSeqTrailerEnd):
					want = true
				default:
					want = false
				}

				if lv != want {
					t.Fatalf("step %d level %v, want %v", step, lv, want)
				}
			}

			// canonical spot checks: the framing runs of ones, the
			// first pattern bit low, the two trailing idle bits low
			if !levels[0] || !levels[49] || !levels[66] || !levels[115] {
				t.Error("line reset framing must stay high")
			}
			if levels[50] {
				t.Error("both select patterns start with a low bit")
			}
			if levels[116] || levels[117] {
				t.Error("the sequence must end with two idle low clocks")
			}
		})
	}
}

func TestSelectSequencePatternRegion(t *testing.T) {
	levels := collectSequence(t, swjPatternToSwd)

	ones := 0
	for step := swjSeqPatternStart; step <= swjSeqPatternEnd; step++ {
		if levels[step] {
			ones++
		}
	}

	// 0xE79E carries eleven set bits
	if ones != 11 {
		t.Errorf("pattern region ones = %d, want 11", ones)
	}
}

func TestSelectSequenceRestart(t *testing.T) {
	var tb timebase
	tb.init(48000000, 1)

	var seq swjSequencer
	seq.start(swjPatternToSwd)

	// run into the pattern region, then abandon for the other pattern
	falls := 0
	for falls < 60 {
		tb.tick()
		seq.tick(&tb)
		if tb.fallingEdge() {
			falls++
		}
	}
	if !seq.busy {
		t.Fatal("sequencer idle in the middle of a sequence")
	}

	seq.start(swjPatternToJtag)

	// the restarted sequence must play all steps from zero
	steps := 0
	started := false
	for i := 0; i < 1<<16; i++ {
		tb.tick()
		seq.tick(&tb)
		if !tb.fallingEdge() {
			continue
		}
		if !started {
			if seq.step == 0 && seq.pattern == swjPatternToJtag {
				started = true
				steps = 1
			}
			continue
		}
		if !seq.busy {
			break
		}
		steps++
	}

	if !started {
		t.Fatal("restart did not rewind to step zero")
	}
	if steps != int(swjSeqDone) {
		t.Errorf("restarted sequence ran %d steps, want %d", steps, swjSeqDone)
	}

	if seq.out {
		t.Error("sequencer must idle low after completion")
	}
}
