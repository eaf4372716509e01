// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package modbus

// CRC-16/MODBUS parameters
const (
	crcPolynomial = 0xA001 // 0x8005 reflected
	crcInitial    = 0xFFFF

	// CRCSize is the number of CRC bytes trailing an RTU frame
	CRCSize = 2
)
