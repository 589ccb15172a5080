// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"testing"
)

func TestApplyPinWord(t *testing.T) {
	tests := []struct {
		name  string
		latch uint8
		word  uint16
		want  uint8
	}{
		{"empty mask touches nothing", 0x96, 0x00FF, 0x96},
		{"reset kept and direction cleared", 0x96, 0x9080, 0x86},
		{"read only bits never set", 0x00, 0xFFFF, pinWritableMask},
		{"read only bits never cleared", 0xFF, 0xFF00, 0xFF &^ pinWritableMask},
		{"clock bit alone", 0x00, 0x0101, PinSwclk},
		{"value outside the mask ignored", 0x00, 0x01FF, PinSwclk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyPinWord(tt.latch, tt.word); got != tt.want {
				t.Errorf("applyPinWord(0x%02x, 0x%04x) = 0x%02x, want 0x%02x",
					tt.latch, tt.word, got, tt.want)
			}
		})
	}
}

func TestSnapshotLayout(t *testing.T) {
	tests := []struct {
		name string
		bus  SwjBus
		want uint8
	}{
		{"all idle", SwjBus{}, PinConstHigh},
		{"clock high", SwjBus{Swclk: true}, PinSwclk | PinConstHigh},
		{"driven data line", SwjBus{SwdioOut: true, SwdioDrive: true},
			PinSwdio | PinSwdioDir | PinConstHigh},
		{"released data line follows the input", SwjBus{SwdioOut: true, SwdioIn: false},
			PinConstHigh},
		{"pulled up data line", SwjBus{SwdioIn: true}, PinSwdio | PinConstHigh},
		{"jtag pins", SwjBus{Tdi: true, Tdo: true}, PinTdi | PinTdo | PinConstHigh},
		{"reset released and sensed", SwjBus{NReset: true, ResetSense: true},
			PinResetSense | PinNReset | PinConstHigh},
		{"everything high", SwjBus{
			Swclk: true, SwdioOut: true, SwdioDrive: true, Tdi: true,
			Tdo: true, NReset: true, ResetSense: true,
		}, 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bus.snapshot(); got != tt.want {
				t.Errorf("snapshot = 0x%02x, want 0x%02x", got, tt.want)
			}
		})
	}
}

func TestSwdioLine(t *testing.T) {
	bus := SwjBus{SwdioOut: true, SwdioDrive: true, SwdioIn: false}
	if !bus.SwdioLine() {
		t.Error("driven line must show the output level")
	}

	bus.SwdioDrive = false
	if bus.SwdioLine() {
		t.Error("released line must show the input level")
	}

	bus.SwdioIn = true
	if !bus.SwdioLine() {
		t.Error("released line must follow the input")
	}
}
