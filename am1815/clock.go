// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"errors"
	"fmt"
	"time"
)

const (
	ctrl112 = 0x40 // 12-hour mode
	hoursPM = 0x20 // PM flag of the hours counter, in 12-hour mode

	minYear = 2000
	maxYear = 2099

	hundredth = 10 * time.Millisecond
)

var (
	// ErrTimeRange is returned for times the device calendar cannot hold.
	ErrTimeRange = errors.New("am1815: time out of range")
)

// ReadTime reads the device clock, with a resolution of 1/100 s.
// The counters are read in a single bulk transfer, the hours counter is
// decoded according to the 12/24-hour mode of Control1.
func (dev *Device) ReadTime() (time.Time, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	return dev.readTime()
}

func (dev *Device) readTime() (time.Time, error) {
	var p [nClockRegs]byte
	dev.readRegs(RegHundredths, p[:])
	ctrl := dev.readReg(RegControl1)
	if err := dev.wrap("read time"); err != nil {
		return time.Time{}, err
	}
	return decodeTime(p, ctrl&ctrl112 != 0), nil
}

// WriteTime sets the device clock to t, truncated to 1/100 s.
// The counters are written in a single bulk transfer, the device is put
// in 24-hour mode.
func (dev *Device) WriteTime(t time.Time) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	return dev.writeTime(t)
}

func (dev *Device) writeTime(t time.Time) error {
	p, err := encodeTime(t)
	if err != nil {
		return err
	}

	dev.update(RegControl1, ctrl1WRTC|ctrl112, ctrl1WRTC)
	p[1] |= dev.readReg(RegSeconds) & secInit
	dev.writeRegs(RegHundredths, p[:])
	return dev.wrap("write time")
}

// AdjustTime shifts the device clock by d.
func (dev *Device) AdjustTime(d time.Duration) (time.Time, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	now, err := dev.readTime()
	if err != nil {
		return time.Time{}, err
	}
	now = now.Add(d)
	err = dev.writeTime(now)
	if err != nil {
		return time.Time{}, err
	}
	return now.Truncate(hundredth), nil
}

// decodeTime decodes the clock counters. In 12-hour mode, the hours
// counter holds 1-12 in bits 4:0 and the PM flag in bit 5.
func decodeTime(p [nClockRegs]byte, h12 bool) time.Time {
	var (
		hund   = bcd2bin(p[0])
		sec    = bcd2bin(p[1] & 0x7f)
		minute = bcd2bin(p[2] & 0x7f)
		hour   = bcd2bin(p[3] & 0x3f)
		day    = bcd2bin(p[4] & 0x3f)
		month  = bcd2bin(p[5] & 0x1f)
		year   = bcd2bin(p[6]) + minYear
	)
	if h12 {
		hour = bcd2bin(p[3]&0x1f) % 12
		if p[3]&hoursPM != 0 {
			hour += 12
		}
	}
	return time.Date(
		year, time.Month(month), day,
		hour, minute, sec, hund*int(hundredth),
		time.UTC,
	)
}

func encodeTime(t time.Time) ([nClockRegs]byte, error) {
	var p [nClockRegs]byte
	t = t.UTC()
	if y := t.Year(); y < minYear || y > maxYear {
		return p, fmt.Errorf("%w: %v (years %d-%d)", ErrTimeRange, t, minYear, maxYear)
	}

	p[0] = bin2bcd(t.Nanosecond() / int(hundredth))
	p[1] = bin2bcd(t.Second())
	p[2] = bin2bcd(t.Minute())
	p[3] = bin2bcd(t.Hour())
	p[4] = bin2bcd(t.Day())
	p[5] = bin2bcd(int(t.Month()))
	p[6] = bin2bcd(t.Year() - minYear)
	p[7] = uint8(t.Weekday())
	return p, nil
}
