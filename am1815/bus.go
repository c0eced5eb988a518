// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// NumRegs is the size of the AM1815 register space.
const NumRegs = 256

var (
	// ErrAddrRange is returned when a register range does not fit in the
	// register space.
	ErrAddrRange = errors.New("am1815: register range out of bounds")
)

// Bus is a register-addressed transport to an AM1815 device.
// Each call is synchronous.
type Bus interface {
	// ReadReg reads a single register.
	ReadReg(reg uint8) (uint8, error)
	// WriteReg writes a single register.
	WriteReg(reg, v uint8) error
	// ReadRegs reads len(p) consecutive registers, starting at reg.
	ReadRegs(reg uint8, p []byte) error
	// WriteRegs writes len(p) consecutive registers, starting at reg.
	WriteRegs(reg uint8, p []byte) error

	io.Closer
}

func checkRange(reg uint8, n int) error {
	if n < 0 || int(reg)+n > NumRegs {
		return fmt.Errorf("%w (reg=0x%02x, n=%d)", ErrAddrRange, reg, n)
	}
	return nil
}

// Op is a register operation recorded by a Mem bus.
type Op struct {
	Write bool
	Reg   uint8
	Data  []byte
}

func (op Op) String() string {
	kind := "r"
	if op.Write {
		kind = "w"
	}
	return fmt.Sprintf("%s(0x%02x, % x)", kind, op.Reg, op.Data)
}

// Mem is an in-memory register space.
// It records every operation in its journal.
type Mem struct {
	mu   sync.Mutex
	regs [NumRegs]byte
	ops  []Op
}

// NewMem returns an in-memory register space initialized from regs.
func NewMem(regs map[uint8]uint8) *Mem {
	bus := &Mem{}
	for k, v := range regs {
		bus.regs[k] = v
	}
	return bus
}

func (bus *Mem) ReadReg(reg uint8) (uint8, error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	v := bus.regs[reg]
	bus.ops = append(bus.ops, Op{Reg: reg, Data: []byte{v}})
	return v, nil
}

func (bus *Mem) WriteReg(reg, v uint8) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.regs[reg] = v
	bus.ops = append(bus.ops, Op{Write: true, Reg: reg, Data: []byte{v}})
	return nil
}

func (bus *Mem) ReadRegs(reg uint8, p []byte) error {
	err := checkRange(reg, len(p))
	if err != nil {
		return err
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	copy(p, bus.regs[reg:])
	bus.ops = append(bus.ops, Op{Reg: reg, Data: append([]byte(nil), p...)})
	return nil
}

func (bus *Mem) WriteRegs(reg uint8, p []byte) error {
	err := checkRange(reg, len(p))
	if err != nil {
		return err
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	copy(bus.regs[reg:], p)
	bus.ops = append(bus.ops, Op{Write: true, Reg: reg, Data: append([]byte(nil), p...)})
	return nil
}

func (bus *Mem) Close() error { return nil }

// Reg returns the current value of a register, without journaling.
func (bus *Mem) Reg(reg uint8) uint8 {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.regs[reg]
}

// Snapshot returns a copy of the whole register space.
func (bus *Mem) Snapshot() [NumRegs]byte {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.regs
}

// Ops returns the journal of operations since the last Reset.
func (bus *Mem) Ops() []Op {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return append([]Op(nil), bus.ops...)
}

// Writes returns the write operations since the last Reset.
func (bus *Mem) Writes() []Op {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	var ws []Op
	for _, op := range bus.ops {
		if op.Write {
			ws = append(ws, op)
		}
	}
	return ws
}

// Reset clears the journal.
func (bus *Mem) Reset() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.ops = bus.ops[:0]
}

var (
	_ Bus = (*Mem)(nil)
)
