// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"testing"
)

func TestBuildSwdHeader(t *testing.T) {
	tests := []struct {
		name  string
		apndp bool
		rnw   bool
		addr  uint8
		want  uint8
	}{
		{"dp read idcode", false, true, 0, 0xA5},
		{"dp write abort", false, false, 0, 0x81},
		{"dp read resend", false, true, 2, 0x95},
		{"dp write select", false, false, 2, 0xB1},
		{"ap write reg1", true, false, 1, 0x8B},
		{"ap read reg3", true, true, 3, 0x9F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSwdHeader(TransactRequest{APnDP: tt.apndp, RnW: tt.rnw, Addr: tt.addr})
			if got != tt.want {
				t.Errorf("header = 0x%02x, want 0x%02x", got, tt.want)
			}
		})
	}
}

func TestParityU32(t *testing.T) {
	tests := []struct {
		value uint32
		want  bool
	}{
		{0x00000000, false},
		{0x00000001, true},
		{0x00000003, false},
		{0x00000007, true},
		{0x80000000, true},
		{0xFFFFFFFF, false},
		{0x2BA01477, false},
	}

	for _, tt := range tests {
		if got := parity_u32(tt.value); got != tt.want {
			t.Errorf("parity_u32(0x%08x) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

// edgeCounter wraps the bus device of a test system and counts target
// clock falling edges, the unit every bit cell budget is stated in.
type edgeCounter struct {
	inner   BusDevice
	prevClk bool
	falls   uint64
}

func (c *edgeCounter) Eval(bus *SwjBus) {
	if c.prevClk && !bus.Swclk {
		c.falls++
	}
	c.prevClk = bus.Swclk
	c.inner.Eval(bus)
}

func newCountedSystem(t *testing.T, cfg *Config) (*SwjDap, *SwdTargetSim, *edgeCounter) {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}

	d := NewSwjDap(cfg)
	sim := NewSwdTargetSim(d.Config())
	ec := &edgeCounter{inner: sim}
	d.Attach(ec)

	return d, sim, ec
}

// commandCells runs one command through the register level handshake
// and returns the falling edges it took from submission to done.
func commandCells(t *testing.T, d *SwjDap, ec *edgeCounter, cmd Command) uint64 {
	t.Helper()

	start := ec.falls
	d.Submit(cmd)
	tickUntilDone(t, d)
	cells := ec.falls - start
	drainHandshake(t, d)

	return cells
}

func TestSwdIdcodeRead(t *testing.T) {
	d, sim, _ := newCountedSystem(t, nil)
	selectSwd(t, d)

	code, err := Idcode(d)
	if err != nil {
		t.Fatalf("Idcode failed: %v", err)
	}
	if code != 0x2BA01477 {
		t.Errorf("Idcode = 0x%08x, want 0x2BA01477", code)
	}
	if d.Err() {
		t.Error("sticky error after a clean read")
	}
	if d.Ack() != AckOk {
		t.Errorf("ack = %s, want OK", d.Ack())
	}

	if len(sim.Transfers) != 1 {
		t.Fatalf("target saw %d transfers, want 1", len(sim.Transfers))
	}
	tr := sim.Transfers[0]
	if tr.APnDP || !tr.RnW || tr.Addr != 0 {
		t.Errorf("target decoded header %+v, want dp read reg0", tr)
	}
	if tr.Ack != AckOk || tr.Data != 0x2BA01477 || !tr.ParityOK {
		t.Errorf("target transfer record %+v, want clean idcode read", tr)
	}
}

func TestSwdWriteReadback(t *testing.T) {
	d, sim, _ := newCountedSystem(t, nil)
	selectSwd(t, d)

	if err := TransactWrite(d, true, 2, 0xCAFEBABE); err != nil {
		t.Fatalf("ap write failed: %v", err)
	}
	if got := sim.ApReg(2); got != 0xCAFEBABE {
		t.Errorf("target ap reg = 0x%08x, want 0xCAFEBABE", got)
	}

	got, err := TransactRead(d, true, 2)
	if err != nil {
		t.Fatalf("ap read failed: %v", err)
	}
	if got != 0xCAFEBABE {
		t.Errorf("ap readback = 0x%08x, want 0xCAFEBABE", got)
	}

	if err := TransactWrite(d, false, DpRegSelect, 0x01000000); err != nil {
		t.Fatalf("dp write failed: %v", err)
	}
	if got := sim.DpReg(DpRegSelect); got != 0x01000000 {
		t.Errorf("target dp reg = 0x%08x, want 0x01000000", got)
	}

	// the write payload must arrive with a valid parity bit
	for i, tr := range sim.Transfers {
		if !tr.ParityOK {
			t.Errorf("transfer %d arrived with bad parity", i)
		}
	}
}

// TestSwdTransactionCellCounts pins the bit level layout: a full
// transaction is header, turnaround, acknowledge and 33 data cells,
// WAIT and FAULT answers skip the data phase unless the dataphase
// cooloff is configured.
func TestSwdTransactionCellCounts(t *testing.T) {
	readCmd := Command{Id: CmdTransact, RnW: true, Addr: DpRegIdcode}
	writeCmd := Command{Id: CmdTransact, Addr: DpRegSelect, Data: 0x0BADF00D}

	measure := func(dataphase bool, ack SwdAck, cmd Command) uint64 {
		t.Helper()

		d, sim, ec := newCountedSystem(t, testConfig())
		selectSwd(t, d)
		if err := Configure(d, 1, dataphase); err != nil {
			t.Fatalf("Configure failed: %v", err)
		}
		if ack != AckOk {
			sim.QueueAck(ack)
		}

		return commandCells(t, d, ec, cmd)
	}

	okRead := measure(false, AckOk, readCmd)
	waitRead := measure(false, AckWait, readCmd)
	faultRead := measure(false, AckFault, readCmd)
	okWrite := measure(false, AckOk, writeCmd)
	waitWrite := measure(false, AckWait, writeCmd)
	dpWaitRead := measure(true, AckWait, readCmd)
	dpWaitWrite := measure(true, AckWait, writeCmd)

	if okRead < 47 || okRead > 48 {
		t.Errorf("ok read = %d cells, want 47 or 48 with capture overhead", okRead)
	}
	if okWrite != okRead {
		t.Errorf("ok write = %d cells, ok read = %d, want equal", okWrite, okRead)
	}
	if okRead-waitRead != 33 {
		t.Errorf("read data phase = %d cells, want 33", okRead-waitRead)
	}
	if okWrite-waitWrite != 33 {
		t.Errorf("write data phase = %d cells, want 33", okWrite-waitWrite)
	}
	if faultRead != waitRead {
		t.Errorf("fault = %d cells, wait = %d cells, want equal", faultRead, waitRead)
	}
	if dpWaitRead != okRead {
		t.Errorf("wait read with dataphase = %d cells, want %d, the full length", dpWaitRead, okRead)
	}
	if dpWaitWrite != okWrite {
		t.Errorf("wait write with dataphase = %d cells, want %d, the full length", dpWaitWrite, okWrite)
	}
}

func TestSwdTurnaroundSweep(t *testing.T) {
	readCmd := Command{Id: CmdTransact, RnW: true, Addr: DpRegIdcode}

	var prev uint64
	for trn := uint32(1); trn <= maxTurnaround; trn++ {
		d, _, ec := newCountedSystem(t, testConfig())
		selectSwd(t, d)
		if err := Configure(d, trn, false); err != nil {
			t.Fatalf("Configure(%d) failed: %v", trn, err)
		}

		cells := commandCells(t, d, ec, readCmd)
		if d.Err() {
			t.Fatalf("turnaround %d: sticky error, engine and target disagree", trn)
		}
		if d.ReadData() != 0x2BA01477 {
			t.Fatalf("turnaround %d: read 0x%08x, want idcode", trn, d.ReadData())
		}

		if trn > 1 && cells-prev != 2 {
			t.Errorf("turnaround %d read = %d cells, want 2 more than turnaround %d (%d)",
				trn, cells, trn-1, prev)
		}
		prev = cells
	}
}

func TestSwdWaitRetry(t *testing.T) {
	d, sim, _ := newCountedSystem(t, nil)
	selectSwd(t, d)

	sim.QueueAck(AckWait, AckWait)

	code, err := TransactRead(d, false, DpRegIdcode)
	if err != nil {
		t.Fatalf("read with two WAIT answers failed: %v", err)
	}
	if code != 0x2BA01477 {
		t.Errorf("read = 0x%08x, want idcode", code)
	}

	if len(sim.Transfers) != 3 {
		t.Fatalf("target saw %d transfers, want 3", len(sim.Transfers))
	}
	for i, want := range []SwdAck{AckWait, AckWait, AckOk} {
		if sim.Transfers[i].Ack != want {
			t.Errorf("transfer %d ack = %s, want %s", i, sim.Transfers[i].Ack, want)
		}
	}
}

func TestSwdFaultNotRetried(t *testing.T) {
	d, sim, _ := newCountedSystem(t, nil)
	selectSwd(t, d)

	sim.QueueAck(AckFault)

	_, err := TransactRead(d, false, DpRegCtrlStat)
	if err == nil {
		t.Fatal("read with a FAULT answer must fail")
	}
	dapErr, ok := err.(*DapError)
	if !ok || dapErr.DapErrorCode != ErrorFail {
		t.Errorf("error = %v, want fail code", err)
	}

	if len(sim.Transfers) != 1 {
		t.Errorf("target saw %d transfers, want 1, faults are not retried", len(sim.Transfers))
	}
}

func TestSwdReadParityError(t *testing.T) {
	d, sim, _ := newCountedSystem(t, nil)
	selectSwd(t, d)

	sim.CorruptNextParity = true

	res, err := d.Exec(Command{Id: CmdTransact, RnW: true, Addr: DpRegIdcode})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if res.Ack != AckOk {
		t.Errorf("ack = %s, want OK, the corruption hits only the parity bit", res.Ack)
	}
	if !res.Err {
		t.Error("sticky error not raised on a read parity mismatch")
	}
	if err := res.Check(); err == nil {
		t.Error("Check must reject a result with the sticky error set")
	}

	// the sticky error holds until the next command starts
	if !d.Err() {
		t.Error("sticky error lost after completion")
	}

	res, err = d.Exec(Command{Id: CmdTransact, RnW: true, Addr: DpRegIdcode})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if res.Err {
		t.Error("sticky error survived into the next clean transaction")
	}
	if res.Data != 0x2BA01477 {
		t.Errorf("clean read after parity error = 0x%08x, want idcode", res.Data)
	}
}

func TestSwdMutedTargetProtocolError(t *testing.T) {
	d, sim, _ := newCountedSystem(t, nil)
	selectSwd(t, d)

	sim.Muted = true

	res, err := d.Exec(Command{Id: CmdTransact, RnW: true, Addr: DpRegIdcode})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if res.Ack != SwdAck(0x7) {
		t.Errorf("ack from a silent target = 0x%x, want 0x7, the pulled up line", uint8(res.Ack))
	}
	if !res.Err {
		t.Error("sticky error not raised on a protocol error")
	}

	checkErr := res.Check()
	dapErr, ok := checkErr.(*DapError)
	if !ok || dapErr.DapErrorCode != ErrorProtocol {
		t.Errorf("Check = %v, want protocol error code", checkErr)
	}

	// recovery: unmute, reselect so the target leaves its lockout
	sim.Muted = false
	selectSwd(t, d)

	code, err := Idcode(d)
	if err != nil {
		t.Fatalf("Idcode after recovery failed: %v", err)
	}
	if code != 0x2BA01477 {
		t.Errorf("Idcode after recovery = 0x%08x, want 0x2BA01477", code)
	}
}

func TestSwdIdleLineLow(t *testing.T) {
	d, _, _ := newCountedSystem(t, nil)
	selectSwd(t, d)

	if _, err := Idcode(d); err != nil {
		t.Fatalf("Idcode failed: %v", err)
	}

	snap := d.PinSnapshot()
	if snap&PinSwdio != 0 {
		t.Error("idle engine must hold the data line low")
	}
	if snap&PinSwdioDir == 0 {
		t.Error("idle engine must keep driving the data line")
	}
}
