// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"fmt"
)

const maximumWaitRetries = 10

// Register level convenience calls over a Commander. They work the
// same against a local core and against a frame client talking to a
// remote one.

/** Issue a transaction with retries on any WAIT acknowledge.

  The retry delay is issued in band as a Wait command so the core keeps
  ticking while the target catches up, doubling each attempt.
*/
func transactAllowRetry(c Commander, cmd Command) (*Result, error) {
	var retries int = 0

	for {
		res, err := c.Exec(cmd)
		if err != nil {
			return nil, err
		}

		err = res.Check()
		if err == nil {
			return res, nil
		}

		dapError := err.(*DapError)

		if dapError.DapErrorCode == ErrorWait && retries < maximumWaitRetries {
			var delayUs uint32 = (1 << retries) * 100

			retries++
			logger.Debugf("transaction WAIT, retry %d, delaying %d microseconds", retries, delayUs)

			if err := WaitMicros(c, delayUs); err != nil {
				return nil, err
			}

			continue
		}

		return res, err
	}
}

// TransactRead performs one register read with WAIT retries.
func TransactRead(c Commander, apndp bool, addr uint8) (uint32, error) {
	res, err := transactAllowRetry(c, Command{
		Id:    CmdTransact,
		APnDP: apndp,
		RnW:   true,
		Addr:  addr,
	})
	if err != nil {
		return 0, err
	}

	return res.Data, nil
}

// TransactWrite performs one register write with WAIT retries.
func TransactWrite(c Commander, apndp bool, addr uint8, value uint32) error {
	_, err := transactAllowRetry(c, Command{
		Id:    CmdTransact,
		APnDP: apndp,
		Addr:  addr,
		Data:  value,
	})

	return err
}

// Idcode switches nothing and reads the debug port identification
// register, the canonical first access after selecting SWD.
func Idcode(c Commander) (uint32, error) {
	return TransactRead(c, false, DpRegIdcode)
}

// SwitchMode commands the interface into the given mode, running the
// selection sequence where one is needed.
func SwitchMode(c Commander, mode DapMode) error {
	var id DapCmd

	switch mode {
	case ModeSwd:
		id = CmdSetSwd
	case ModeJtag:
		id = CmdSetJtag
	case ModeSwj:
		id = CmdSetSwj
	case ModePowerDown:
		id = CmdSetPowerDown
	default:
		return NewDapError(fmt.Sprintf("no such interface mode %d", mode), ErrorFail)
	}

	res, err := c.Exec(Command{Id: id})
	if err != nil {
		return err
	}

	return res.Check()
}

// WaitMicros holds the core for the given number of microseconds. The
// acknowledge register is left untouched, so a retry loop can delay in
// band without losing the WAIT it is backing off from.
func WaitMicros(c Commander, micros uint32) error {
	_, err := c.Exec(Command{Id: CmdWait, Data: micros})

	return err
}

// ResetTarget pulses the target reset line and waits for the release
// to be confirmed or the guard time to expire.
func ResetTarget(c Commander) error {
	res, err := c.Exec(Command{Id: CmdReset})
	if err != nil {
		return err
	}

	return res.Check()
}

// WritePins drives the masked pin set in raw mode and returns the live
// snapshot after the hold time.
func WritePins(c Commander, value uint8, mask uint8, holdUs uint32) (uint8, error) {
	res, err := c.Exec(Command{
		Id:   CmdPinsWrite,
		Data: holdUs,
		Pins: uint16(mask)<<8 | uint16(value),
	})
	if err != nil {
		return 0, err
	}

	return res.Pins, res.Check()
}

func SetClock(c Commander, divisor uint32) error {
	res, err := c.Exec(Command{Id: CmdSetClkDiv, Data: divisor})
	if err != nil {
		return err
	}

	return res.Check()
}

// Configure sets the turnaround cycle count (1 to 4) and the dataphase
// cooloff behavior.
func Configure(c Commander, turnaround uint32, dataphase bool) error {
	if turnaround < 1 || turnaround > maxTurnaround {
		return NewDapError(fmt.Sprintf("turnaround %d out of range", turnaround), ErrorFail)
	}

	data := (turnaround - 1) & 0x3
	if dataphase {
		data |= 0x4
	}

	res, err := c.Exec(Command{Id: CmdSetCfg, Data: data})
	if err != nil {
		return err
	}

	return res.Check()
}

func SetResetTimer(c Commander, micros uint32) error {
	res, err := c.Exec(Command{Id: CmdSetRstTmr, Data: micros})
	if err != nil {
		return err
	}

	return res.Check()
}

func ClearError(c Commander) error {
	res, err := c.Exec(Command{Id: CmdClrErr})
	if err != nil {
		return err
	}

	return res.Check()
}
