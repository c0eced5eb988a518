// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"fmt"

	"github.com/go-daq/smbus"
)

// I2CAddr is the 7-bit I2C address of the AM1815.
const I2CAddr = 0x69

// I2C is a Bus over a Linux /dev/i2c-N adapter, using SMBus byte-data
// transactions.
type I2C struct {
	conn *smbus.Conn
	addr uint8
}

// OpenI2C opens the AM1815 at address addr on the I2C adapter number bus.
func OpenI2C(bus int, addr uint8) (*I2C, error) {
	conn, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("am1815: could not open i2c-%d (addr=0x%02x): %w", bus, addr, err)
	}
	return &I2C{conn: conn, addr: addr}, nil
}

func (bus *I2C) ReadReg(reg uint8) (uint8, error) {
	v, err := bus.conn.ReadReg(bus.addr, reg)
	if err != nil {
		return 0, fmt.Errorf("am1815: could not read register 0x%02x: %w", reg, err)
	}
	return v, nil
}

func (bus *I2C) WriteReg(reg, v uint8) error {
	err := bus.conn.WriteReg(bus.addr, reg, v)
	if err != nil {
		return fmt.Errorf("am1815: could not write register 0x%02x: %w", reg, err)
	}
	return nil
}

// ReadRegs reads consecutive registers one at a time.
// SMBus block transfers are limited to 32 bytes and not all adapters
// implement them.
func (bus *I2C) ReadRegs(reg uint8, p []byte) error {
	err := checkRange(reg, len(p))
	if err != nil {
		return err
	}
	for i := range p {
		p[i], err = bus.ReadReg(reg + uint8(i))
		if err != nil {
			return err
		}
	}
	return nil
}

func (bus *I2C) WriteRegs(reg uint8, p []byte) error {
	err := checkRange(reg, len(p))
	if err != nil {
		return err
	}
	for i, v := range p {
		err = bus.WriteReg(reg+uint8(i), v)
		if err != nil {
			return err
		}
	}
	return nil
}

func (bus *I2C) Close() error {
	return bus.conn.Close()
}

var (
	_ Bus = (*I2C)(nil)
)
