// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package modbus

import "fmt"

// CRC16 computes the Modbus RTU CRC16 of data.
//
// The returned value is byte-swapped so that its big-endian representation
// matches the order the two CRC bytes travel on the wire (register low byte
// first). For 01 03 01 89 00 02 the result is 0x141D.
func CRC16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
	}
	return crc<<8 | crc>>8
}

// CRCBytes returns the CRC of data in wire order
func CRCBytes(data []byte) []byte {
	crc := CRC16(data)
	return []byte{byte(crc >> 8), byte(crc)}
}

// AppendCRC returns a new slice holding frame followed by its CRC
func AppendCRC(frame []byte) []byte {
	out := make([]byte, 0, len(frame)+CRCSize)
	out = append(out, frame...)
	return append(out, CRCBytes(frame)...)
}

// CheckCRC reports whether the last two bytes of frame are the CRC of the
// bytes before them.
func CheckCRC(frame []byte) bool {
	if len(frame) < CRCSize {
		return false
	}
	body := frame[:len(frame)-CRCSize]
	crc := CRC16(body)
	return frame[len(frame)-2] == byte(crc>>8) && frame[len(frame)-1] == byte(crc)
}

// FormatCRC renders a CRC value as four upper-case hex digits
func FormatCRC(crc uint16) string {
	return fmt.Sprintf("%04X", crc)
}
