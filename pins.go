// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

// SwjBus carries the physical line state between the dispatcher and
// whatever sits on the other end of the cable. Output levels are set
// by the dispatcher on every tick, input levels by the attached
// BusDevice. SWDIO is bidirectional: SwdioDrive selects whether the
// probe or the target owns the line.
type SwjBus struct {
	Swclk      bool
	SwdioOut   bool
	SwdioDrive bool
	SwdioIn    bool
	Tdi        bool
	Tdo        bool
	NReset     bool // active low, true means released
	ResetSense bool // input, true once the target left reset

	PowerEnable bool
}

// SwdioLine resolves the bidirectional data line to the level a probe
// pin header would show: the driven value while the probe owns the
// line, the target (or pull up) level otherwise.
func (b *SwjBus) SwdioLine() bool {
	if b.SwdioDrive {
		return b.SwdioOut
	}

	return b.SwdioIn
}

// BusDevice is the hardware boundary: a target chip, a level shifter
// bridge or a simulation. Eval is called once per reference tick after
// the output lines have settled and may set the input lines.
type BusDevice interface {
	Eval(bus *SwjBus)
}

// snapshot packs the live line state into the 8 bit diagnostic view.
// The layout matches the pin write word: SWCLK, SWDIO, TDI, TDO,
// direction, constant 1, reset sense, reset output.
func (b *SwjBus) snapshot() uint8 {
	var s uint8 = PinConstHigh

	if b.Swclk {
		s |= PinSwclk
	}
	if b.SwdioLine() {
		s |= PinSwdio
	}
	if b.Tdi {
		s |= PinTdi
	}
	if b.Tdo {
		s |= PinTdo
	}
	if b.SwdioDrive {
		s |= PinSwdioDir
	}
	if b.ResetSense {
		s |= PinResetSense
	}
	if b.NReset {
		s |= PinNReset
	}

	return s
}

// applyPinWord performs the masked read modify write of a PinsWrite
// command on the driven pin latch. The high byte selects which low
// byte bits take effect, read only bits never change.
func applyPinWord(latch uint8, word uint16) uint8 {
	mask := uint8(word>>8) & pinWritableMask
	value := uint8(word)

	return (latch &^ mask) | (value & mask)
}
