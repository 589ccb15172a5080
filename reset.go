// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

// Target reset runs in two timed phases. While the dispatcher sits in
// Resetting the reset line is forced active regardless of mode, the
// guard phase releases it and waits for the target's reset sense input
// to confirm release, bounded by the same configured duration.

func (d *SwjDap) startReset() {
	d.usLeft = d.cfg.ResetMicros
	d.state = stateResetting
	logger.Debugf("target reset asserted for %d us", d.cfg.ResetMicros)
}

func (d *SwjDap) stepResetting() {
	if d.tb.microStrobe && d.usLeft > 0 {
		d.usLeft--
	}
	if d.usLeft == 0 {
		d.usLeft = d.cfg.ResetMicros
		d.state = stateResetGuard
	}
}

func (d *SwjDap) stepResetGuard() {
	if d.bus.ResetSense || d.usLeft == 0 {
		if !d.bus.ResetSense {
			logger.Debug("target did not confirm reset release within the guard time")
		}
		d.complete()
		return
	}

	if d.tb.microStrobe {
		d.usLeft--
	}
}
