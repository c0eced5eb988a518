// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// spidev ioctl requests (linux/spi/spidev.h).
const (
	spiIOCWrMode        = 0x40016b01
	spiIOCWrBitsPerWord = 0x40016b03
	spiIOCWrMaxSpeedHz  = 0x40046b04
	spiIOCMessage1      = 0x40206b00

	// the SPI interface only addresses the first 128 registers.
	spiNumRegs  = 0x80
	spiWriteBit = 0x80
)

type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	len         uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNBits     uint8
	rxNBits     uint8
	wordDelay   uint8
	pad         uint8
}

// SPI is a Bus over a Linux spidev device.
type SPI struct {
	f     *os.File
	speed uint32
}

// OpenSPI opens the spidev device fname (e.g. /dev/spidev0.0), in SPI
// mode 0 at the provided clock speed (in Hz).
func OpenSPI(fname string, speed uint32) (*SPI, error) {
	f, err := os.OpenFile(fname, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("am1815: could not open %q: %w", fname, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	bus := &SPI{f: f, speed: speed}

	var (
		mode = uint8(0)
		bits = uint8(8)
	)
	err = bus.ioctl(spiIOCWrMode, unsafe.Pointer(&mode))
	if err != nil {
		return nil, fmt.Errorf("am1815: could not set SPI mode: %w", err)
	}
	err = bus.ioctl(spiIOCWrBitsPerWord, unsafe.Pointer(&bits))
	if err != nil {
		return nil, fmt.Errorf("am1815: could not set SPI bits-per-word: %w", err)
	}
	err = bus.ioctl(spiIOCWrMaxSpeedHz, unsafe.Pointer(&speed))
	if err != nil {
		return nil, fmt.Errorf("am1815: could not set SPI speed to %dHz: %w", speed, err)
	}

	return bus, nil
}

func (bus *SPI) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, bus.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// tx runs a single full-duplex transfer, with chip-select held for the
// whole buffer.
func (bus *SPI) tx(buf []byte) error {
	xfer := spiIOCTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&buf[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&buf[0]))),
		len:         uint32(len(buf)),
		speedHz:     bus.speed,
		bitsPerWord: 8,
	}
	err := bus.ioctl(spiIOCMessage1, unsafe.Pointer(&xfer))
	runtime.KeepAlive(buf)
	return err
}

func (bus *SPI) check(reg uint8, n int) error {
	if int(reg)+n > spiNumRegs {
		return fmt.Errorf("%w (reg=0x%02x, n=%d, spi)", ErrAddrRange, reg, n)
	}
	return checkRange(reg, n)
}

func (bus *SPI) ReadReg(reg uint8) (uint8, error) {
	var p [1]byte
	err := bus.ReadRegs(reg, p[:])
	return p[0], err
}

func (bus *SPI) WriteReg(reg, v uint8) error {
	return bus.WriteRegs(reg, []byte{v})
}

func (bus *SPI) ReadRegs(reg uint8, p []byte) error {
	err := bus.check(reg, len(p))
	if err != nil {
		return err
	}
	buf := make([]byte, 1+len(p))
	buf[0] = reg
	err = bus.tx(buf)
	if err != nil {
		return fmt.Errorf("am1815: could not read %d register(s) at 0x%02x: %w", len(p), reg, err)
	}
	copy(p, buf[1:])
	return nil
}

func (bus *SPI) WriteRegs(reg uint8, p []byte) error {
	err := bus.check(reg, len(p))
	if err != nil {
		return err
	}
	buf := make([]byte, 1+len(p))
	buf[0] = reg | spiWriteBit
	copy(buf[1:], p)
	err = bus.tx(buf)
	if err != nil {
		return fmt.Errorf("am1815: could not write %d register(s) at 0x%02x: %w", len(p), reg, err)
	}
	return nil
}

func (bus *SPI) Close() error {
	return bus.f.Close()
}

var (
	_ Bus = (*SPI)(nil)
)
