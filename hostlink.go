// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"bufio"
	"fmt"
	"io"
)

// Commander executes dispatcher commands: the core itself or a frame
// client forwarding them to a remote core over a byte link.
type Commander interface {
	Exec(cmd Command) (*Result, error)
}

// crc16 is the checksum of the host link frames, the same algorithm
// the Klipper family of firmwares uses on serial links.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// Command frame, 12 bytes:
//
//	[0]    sync 0x7E
//	[1]    sequence number
//	[2]    command id
//	[3]    flags: RnW, APnDP, two address selector bits
//	[4:8]  data operand, little endian
//	[8:10] pin word, little endian
//	[10:12] crc16 over bytes [1:10], little endian
//
// Response frame, 10 bytes:
//
//	[0]    sync 0x7E
//	[1]    sequence number of the answered command
//	[2]    status: ack code in the low bits, sticky error above
//	[3]    live pin snapshot
//	[4:8]  read data, little endian
//	[8:10] crc16 over bytes [1:8], little endian

func encodeCommand(seq uint8, cmd Command) []byte {
	buf := make([]byte, frameCmdLen)

	buf[0] = frameSync
	buf[1] = seq
	buf[2] = uint8(cmd.Id)

	var flags uint8
	if cmd.RnW {
		flags |= frameFlagRnW
	}
	if cmd.APnDP {
		flags |= frameFlagApNDp
	}
	flags |= (cmd.Addr << frameFlagAddrLs) & frameFlagAddr
	buf[3] = flags

	uint32ToLittleEndian(buf[4:8], cmd.Data)
	uint16ToLittleEndian(buf[8:10], cmd.Pins)
	uint16ToLittleEndian(buf[10:12], crc16(buf[1:10]))

	return buf
}

func decodeCommand(buf []byte) (uint8, Command, error) {
	if len(buf) != frameCmdLen || buf[0] != frameSync {
		return 0, Command{}, NewDapError("malformed command frame", ErrorFrame)
	}
	if le_to_h_u16(buf[10:12]) != crc16(buf[1:10]) {
		return 0, Command{}, NewDapError("command frame crc mismatch", ErrorFrame)
	}

	cmd := Command{
		Id:    DapCmd(buf[2]),
		RnW:   buf[3]&frameFlagRnW != 0,
		APnDP: buf[3]&frameFlagApNDp != 0,
		Addr:  (buf[3] & frameFlagAddr) >> frameFlagAddrLs,
		Data:  le_to_h_u32(buf[4:8]),
		Pins:  le_to_h_u16(buf[8:10]),
	}

	return buf[1], cmd, nil
}

func encodeResponse(seq uint8, res *Result) []byte {
	buf := make([]byte, frameRespLen)

	buf[0] = frameSync
	buf[1] = seq

	status := uint8(res.Ack) & frameStatusAck
	if res.Err {
		status |= frameStatusErr
	}
	buf[2] = status
	buf[3] = res.Pins

	uint32ToLittleEndian(buf[4:8], res.Data)
	uint16ToLittleEndian(buf[8:10], crc16(buf[1:8]))

	return buf
}

func decodeResponse(buf []byte) (uint8, *Result, error) {
	if len(buf) != frameRespLen || buf[0] != frameSync {
		return 0, nil, NewDapError("malformed response frame", ErrorFrame)
	}
	if le_to_h_u16(buf[8:10]) != crc16(buf[1:8]) {
		return 0, nil, NewDapError("response frame crc mismatch", ErrorFrame)
	}

	res := &Result{
		Ack:  SwdAck(buf[2] & frameStatusAck),
		Err:  buf[2]&frameStatusErr != 0,
		Pins: buf[3],
		Data: le_to_h_u32(buf[4:8]),
	}

	return buf[1], res, nil
}

// ServeFrames runs the device side of the host link: it decodes one
// command frame at a time, executes it on the commander and answers
// with a response frame. Garbage on the link is skipped until the next
// sync byte, a clean end of stream returns nil.
func ServeFrames(rw io.ReadWriter, c Commander) error {
	br := bufio.NewReader(rw)
	frame := make([]byte, frameCmdLen)

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if b != frameSync {
			logger.Tracef("skipping garbage byte 0x%02x on host link", b)
			continue
		}

		frame[0] = frameSync
		if _, err := io.ReadFull(br, frame[1:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}

		seq, cmd, err := decodeCommand(frame)
		if err != nil {
			logger.Debugf("dropping command frame: %v", err)
			continue
		}

		res, err := c.Exec(cmd)
		if err != nil {
			logger.Warnf("command %d failed on the core: %v", cmd.Id, err)
			res = &Result{Err: true}
		}

		if _, err := rw.Write(encodeResponse(seq, res)); err != nil {
			return err
		}
	}
}

// FrameClient is the host side of the link: a Commander that forwards
// every command as a frame and waits for the matching response.
type FrameClient struct {
	w   io.Writer
	br  *bufio.Reader
	seq uint8
}

func NewFrameClient(rw io.ReadWriter) *FrameClient {
	return &FrameClient{
		w:  rw,
		br: bufio.NewReader(rw),
	}
}

// maxRespScan bounds how many link bytes Exec searches for its
// response before giving up.
const maxRespScan = 4096

func (c *FrameClient) Exec(cmd Command) (*Result, error) {
	c.seq++

	if _, err := c.w.Write(encodeCommand(c.seq, cmd)); err != nil {
		return nil, err
	}

	frame := make([]byte, frameRespLen)

	for scanned := 0; scanned < maxRespScan; {
		b, err := c.br.ReadByte()
		if err != nil {
			return nil, err
		}
		scanned++

		if b != frameSync {
			continue
		}

		frame[0] = frameSync
		if _, err := io.ReadFull(c.br, frame[1:]); err != nil {
			return nil, err
		}
		scanned += frameRespLen - 1

		seq, res, err := decodeResponse(frame)
		if err != nil {
			logger.Debugf("dropping response frame: %v", err)
			continue
		}
		if seq != c.seq {
			logger.Debugf("stale response frame, seq %d wanted %d", seq, c.seq)
			continue
		}

		return res, nil
	}

	return nil, NewDapError(fmt.Sprintf("no response for command %d", cmd.Id), ErrorTimeout)
}
