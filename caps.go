// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// capability flag indices
const (
	flagHasSwd = iota
	flagHasJtag
	flagHasSwj
	flagHasDataphase
	flagHasStreaming
	flagHasResetSense
	flagHasPowerControl
)

// Capabilities describes what the core can do in its current
// configuration as a flag bitmap, the JTAG flag depends on whether an
// external transaction engine is attached.
func (d *SwjDap) Capabilities() bitmap.Bitmap {
	var flags bitmap.Bitmap = bitmap.New(32)

	flags.Set(flagHasSwd, true)
	flags.Set(flagHasSwj, true)
	flags.Set(flagHasStreaming, true)    // transaction re-prime fast path
	flags.Set(flagHasResetSense, true)   // reset release is observed, not assumed
	flags.Set(flagHasPowerControl, true) // power enable follows the mode

	if d.jtag != nil {
		flags.Set(flagHasJtag, true)
	}

	if d.cfg.Dataphase {
		flags.Set(flagHasDataphase, true)
	}

	return flags
}

func (d *SwjDap) SupportsMode(mode DapMode) bool {
	flags := d.Capabilities()

	switch mode {
	case ModePowerDown:
		return true
	case ModeSwj:
		return flags.Get(flagHasSwj)
	case ModeSwd:
		return flags.Get(flagHasSwd)
	case ModeJtag:
		return flags.Get(flagHasJtag)
	default:
		return false
	}
}

// CapabilityString renders the capability set the way probe banners
// print it, one letter per transport plus the option flags.
func (d *SwjDap) CapabilityString() string {
	flags := d.Capabilities()

	var s string = "SWJ"

	if flags.Get(flagHasSwd) {
		s += "+SWD"
	}
	if flags.Get(flagHasJtag) {
		s += "+JTAG"
	}
	if flags.Get(flagHasDataphase) {
		s += fmt.Sprintf(" dataphase(trn=%d)", d.cfg.Turnaround)
	}

	return s
}
