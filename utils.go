// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import "github.com/google/gousb"

func idExists(slice []gousb.ID, item gousb.ID) bool {
	for _, element := range slice {
		if element == item {
			return true
		}
	}

	return false
}

// parity_u32 returns the even parity bit of value, the xor of all
// 32 bits as used by the swd data and header parity fields.
func parity_u32(value uint32) bool {
	value ^= value >> 16
	value ^= value >> 8
	value ^= value >> 4
	value ^= value >> 2
	value ^= value >> 1

	return (value & 1) == 1
}

func le_to_h_u16(buffer []byte) uint16 {
	return uint16(uint16(buffer[0]) | (uint16(buffer[1]) << 8))
}

func le_to_h_u32(buffer []byte) uint32 {
	return (uint32(buffer[0]) | uint32(buffer[1])<<8 | uint32(buffer[2])<<16 | uint32(buffer[3])<<24)
}

func uint32ToLittleEndian(buffer []byte, value uint32) {
	buffer[3] = byte(value >> 24)
	buffer[2] = byte(value >> 16)
	buffer[1] = byte(value >> 8)
	buffer[0] = byte(value >> 0)
}

func uint16ToLittleEndian(buffer []byte, value uint16) {
	buffer[1] = byte(value >> 8)
	buffer[0] = byte(value >> 0)
}
