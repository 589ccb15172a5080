// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

// JtagDrive is the line state a JTAG bit engine wants on the shared
// pins for the current cell. TMS rides on the shared data line.
type JtagDrive struct {
	Tms bool
	Tdi bool
}

// JtagEngine is the contract for an external JTAG transaction engine.
// The dispatcher treats it exactly like the built in SWD engine: arm
// it with Start, feed it every target clock edge, wait for Busy to
// rise and fall again, then collect ack, data and the error flag.
// Transactions requested in JTAG mode fail with the sticky error when
// no engine is attached.
type JtagEngine interface {
	Start(req TransactRequest)
	Clock(rising bool, tdo bool)
	Busy() bool
	Ack() SwdAck
	Data() uint32
	Err() bool
	Drive() JtagDrive
}
