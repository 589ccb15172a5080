// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// SerialLink is a byte pipe to a probe hanging off a serial port or a
// USB CDC endpoint, ready for a FrameClient or for ServeFrames on the
// device side of a pty.
type SerialLink struct {
	port *serial.Port
	name string
}

const DefaultSerialBaud = 115200

// OpenSerialLink opens the named port. A zero baud rate selects the
// default, the read timeout keeps a lost probe from blocking forever.
func OpenSerialLink(name string, baud int) (*SerialLink, error) {
	if baud == 0 {
		baud = DefaultSerialBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %v", name, err)
	}

	logger.Infof("opened serial link on %s at %d baud", name, baud)

	return &SerialLink{port: port, name: name}, nil
}

func (l *SerialLink) Read(buffer []byte) (int, error) {
	return l.port.Read(buffer)
}

func (l *SerialLink) Write(buffer []byte) (int, error) {
	return l.port.Write(buffer)
}

func (l *SerialLink) Close() error {
	logger.Debugf("closing serial link on %s", l.name)
	return l.port.Close()
}
