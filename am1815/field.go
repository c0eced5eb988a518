// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

// SetField returns v with the bits selected by mask replaced by the
// corresponding bits of bits. Bits outside mask are left untouched.
func SetField(v, mask, bits uint8) uint8 {
	return (v &^ mask) | (bits & mask)
}

// SetBits returns v with all the bits of mask set.
func SetBits(v, mask uint8) uint8 {
	return SetField(v, mask, mask)
}

// ClearBits returns v with all the bits of mask cleared.
func ClearBits(v, mask uint8) uint8 {
	return SetField(v, mask, 0)
}

// Field extracts the field selected by mask, shifted down to bit 0.
func Field(v, mask uint8) uint8 {
	if mask == 0 {
		return 0
	}
	v &= mask
	for mask&1 == 0 {
		mask >>= 1
		v >>= 1
	}
	return v
}

// SetFlag sets or clears the bits of mask depending on on.
func SetFlag(v, mask uint8, on bool) uint8 {
	if on {
		return SetBits(v, mask)
	}
	return ClearBits(v, mask)
}

func bcd2bin(v uint8) int {
	return int(v>>4)*10 + int(v&0x0f)
}

func bin2bcd(v int) uint8 {
	return uint8((v/10)<<4 | (v % 10))
}
