// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package am1815 configures and drives an AM1815 real-time clock.
package am1815 // import "github.com/go-lpc/rtc/am1815"

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Device is an AM1815 real-time clock, attached to a register bus.
//
// Device serializes access to the bus: each exported method holds the
// device for the whole of its register sequence.
type Device struct {
	mu  sync.Mutex
	bus Bus
	msg *log.Logger
	err error
}

// Option configures a Device.
type Option func(dev *Device)

// WithLogger sets the logger used to report configuration diagnostics.
func WithLogger(msg *log.Logger) Option {
	return func(dev *Device) {
		dev.msg = msg
	}
}

// WithOutput reports configuration diagnostics to w, without any prefix.
func WithOutput(w io.Writer) Option {
	return WithLogger(log.New(w, "", 0))
}

// New returns a device driving the AM1815 reachable through bus.
// The bus is owned by the caller.
func New(bus Bus, opts ...Option) *Device {
	dev := &Device{
		bus: bus,
		msg: log.New(os.Stdout, "am1815: ", 0),
	}
	for _, opt := range opts {
		opt(dev)
	}
	return dev
}

// ReadRegister reads a single register.
func (dev *Device) ReadRegister(reg uint8) (uint8, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	v := dev.readReg(reg)
	return v, dev.wrap("read register 0x%02x", reg)
}

// WriteRegister writes a single register, as a full-register write.
func (dev *Device) WriteRegister(reg, v uint8) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	dev.writeReg(reg, v)
	return dev.wrap("write register 0x%02x", reg)
}

// ReadBulk reads n consecutive registers, starting at reg.
func (dev *Device) ReadBulk(reg uint8, n int) ([]byte, error) {
	err := checkRange(reg, n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	p := make([]byte, n)
	dev.readRegs(reg, p)
	if err := dev.wrap("read %d registers at 0x%02x", n, reg); err != nil {
		return nil, err
	}
	return p, nil
}

// WriteProtected unlocks reg with key and writes v to it.
// No other register access happens between the key write and the
// write to reg.
func (dev *Device) WriteProtected(key Key, reg, v uint8) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	dev.writeProtected(key, reg, v)
	return dev.wrap("write protected register 0x%02x", reg)
}

func (dev *Device) wrap(format string, args ...interface{}) error {
	if dev.err == nil {
		return nil
	}
	err := dev.err
	dev.err = nil
	return fmt.Errorf("am1815: could not "+format+": %w", append(args, err)...)
}

func (dev *Device) readReg(reg uint8) uint8 {
	if dev.err != nil {
		return 0
	}
	var v uint8
	v, dev.err = dev.bus.ReadReg(reg)
	return v
}

func (dev *Device) writeReg(reg, v uint8) {
	if dev.err != nil {
		return
	}
	dev.err = dev.bus.WriteReg(reg, v)
}

func (dev *Device) readRegs(reg uint8, p []byte) {
	if dev.err != nil {
		return
	}
	dev.err = dev.bus.ReadRegs(reg, p)
}

func (dev *Device) writeRegs(reg uint8, p []byte) {
	if dev.err != nil {
		return
	}
	dev.err = dev.bus.WriteRegs(reg, p)
}

func (dev *Device) writeProtected(key Key, reg, v uint8) {
	dev.writeReg(RegKey, uint8(key))
	dev.writeReg(reg, v)
}

// update replaces the field mask of reg with bits and returns the
// value written back.
func (dev *Device) update(reg, mask, bits uint8) uint8 {
	v := SetField(dev.readReg(reg), mask, bits)
	dev.writeReg(reg, v)
	return v
}
