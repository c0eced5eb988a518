// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"

	"github.com/go-lpc/rtc/am1815"
)

// Open opens the register transport described by cfg.
func (cfg BusConfig) Open() (am1815.Bus, error) {
	switch cfg.Kind {
	case "i2c":
		bus, err := am1815.OpenI2C(cfg.I2C.Bus, cfg.I2C.Addr)
		if err != nil {
			return nil, fmt.Errorf("config: could not open i2c bus: %w", err)
		}
		return bus, nil
	case "spi":
		bus, err := am1815.OpenSPI(cfg.SPI.Device, cfg.SPI.Speed)
		if err != nil {
			return nil, fmt.Errorf("config: could not open spi device: %w", err)
		}
		return bus, nil
	case "file":
		bus, err := am1815.OpenFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("config: could not open register image: %w", err)
		}
		return bus, nil
	case "mem":
		return am1815.NewMem(nil), nil
	default:
		return nil, fmt.Errorf("config: invalid bus kind %q", cfg.Kind)
	}
}
