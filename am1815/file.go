// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"fmt"

	"github.com/go-lpc/rtc/internal/mmap"
)

// File is a simulated register space, backed by a memory-mapped file.
// The register image survives across processes.
type File struct {
	h *mmap.Handle
}

// OpenFile opens (or creates) the register image fname.
func OpenFile(fname string) (*File, error) {
	h, err := mmap.Open(fname, NumRegs)
	if err != nil {
		return nil, fmt.Errorf("am1815: could not open register image: %w", err)
	}
	return &File{h: h}, nil
}

func (bus *File) ReadReg(reg uint8) (uint8, error) {
	var p [1]byte
	err := bus.ReadRegs(reg, p[:])
	return p[0], err
}

func (bus *File) WriteReg(reg, v uint8) error {
	return bus.WriteRegs(reg, []byte{v})
}

func (bus *File) ReadRegs(reg uint8, p []byte) error {
	err := checkRange(reg, len(p))
	if err != nil {
		return err
	}
	_, err = bus.h.ReadAt(p, int64(reg))
	if err != nil {
		return fmt.Errorf("am1815: could not read %d register(s) at 0x%02x: %w", len(p), reg, err)
	}
	return nil
}

func (bus *File) WriteRegs(reg uint8, p []byte) error {
	err := checkRange(reg, len(p))
	if err != nil {
		return err
	}
	_, err = bus.h.WriteAt(p, int64(reg))
	if err != nil {
		return fmt.Errorf("am1815: could not write %d register(s) at 0x%02x: %w", len(p), reg, err)
	}
	return nil
}

// Close flushes the register image and releases it.
func (bus *File) Close() error {
	err := bus.h.Sync()
	if err != nil {
		_ = bus.h.Close()
		return fmt.Errorf("am1815: could not sync register image: %w", err)
	}
	return bus.h.Close()
}

var (
	_ Bus = (*File)(nil)
)
