// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the configuration of the RTC tools.
package config // import "github.com/go-lpc/rtc/internal/config"

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the RTC tools.
type Config struct {
	Bus     BusConfig     `yaml:"bus"`
	CLI     CLIConfig     `yaml:"cli"`
	Profile ProfileConfig `yaml:"profile"`
}

// BusConfig selects and configures the register transport.
type BusConfig struct {
	Kind string    `yaml:"kind"` // i2c, spi, mem or file
	I2C  I2CConfig `yaml:"i2c"`
	SPI  SPIConfig `yaml:"spi"`
	File string    `yaml:"file"` // register image, for kind=file
}

// I2CConfig configures an I2C transport.
type I2CConfig struct {
	Bus  int   `yaml:"bus"`
	Addr uint8 `yaml:"addr"`
}

// SPIConfig configures a spidev transport.
type SPIConfig struct {
	Device string `yaml:"device"`
	Speed  uint32 `yaml:"speed"`
}

// CLIConfig configures the interactive command line.
type CLIConfig struct {
	Echo        bool   `yaml:"echo"`
	History     string `yaml:"history"`
	HistorySize int    `yaml:"history_size"`
}

// ProfileConfig is a device configuration applied in one go.
// Nil fields are left untouched.
type ProfileConfig struct {
	DisablePins   bool         `yaml:"disable_pins"`
	ClearOscFail  bool         `yaml:"clear_osc_failure"`
	OscFailover   *bool        `yaml:"osc_failover"`
	BatSwitchover *bool        `yaml:"bat_switchover"`
	Trickle       *bool        `yaml:"trickle"`
	Alarm         *AlarmConfig `yaml:"alarm"`
	Countdown     *float64     `yaml:"countdown"`
}

// AlarmConfig configures the alarm interrupt.
type AlarmConfig struct {
	Enable bool  `yaml:"enable"`
	Pulse  uint8 `yaml:"pulse"`
}

// Default returns the default configuration: the AM1815 on the first
// I2C adapter, with console echo.
func Default() Config {
	return Config{
		Bus: BusConfig{
			Kind: "i2c",
			I2C:  I2CConfig{Bus: 1, Addr: 0x69},
			SPI:  SPIConfig{Device: "/dev/spidev0.0", Speed: 2000000},
		},
		CLI: CLIConfig{
			Echo:        true,
			History:     "~/.rtc_history",
			HistorySize: 500,
		},
	}
}

// Load reads the configuration file fname on top of the defaults.
// An empty fname returns the defaults.
func Load(fname string) (Config, error) {
	cfg := Default()
	if fname == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		return cfg, fmt.Errorf("config: could not read %q: %w", fname, err)
	}

	err = yaml.Unmarshal(raw, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: could not decode %q: %w", fname, err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("config: invalid configuration %q: %w", fname, err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (cfg Config) Validate() error {
	switch cfg.Bus.Kind {
	case "i2c":
		if cfg.Bus.I2C.Bus < 0 {
			return fmt.Errorf("invalid i2c bus number %d", cfg.Bus.I2C.Bus)
		}
		if cfg.Bus.I2C.Addr > 0x7f {
			return fmt.Errorf("invalid i2c address 0x%x", cfg.Bus.I2C.Addr)
		}
	case "spi":
		if cfg.Bus.SPI.Device == "" {
			return fmt.Errorf("missing spi device")
		}
		if cfg.Bus.SPI.Speed == 0 {
			return fmt.Errorf("invalid spi speed 0")
		}
	case "file":
		if cfg.Bus.File == "" {
			return fmt.Errorf("missing register image file")
		}
	case "mem":
	default:
		return fmt.Errorf("invalid bus kind %q", cfg.Bus.Kind)
	}

	if cfg.CLI.HistorySize < 0 {
		return fmt.Errorf("invalid history size %d", cfg.CLI.HistorySize)
	}

	if alarm := cfg.Profile.Alarm; alarm != nil && alarm.Enable && alarm.Pulse > 3 {
		return fmt.Errorf("invalid alarm pulse %d", alarm.Pulse)
	}
	if cd := cfg.Profile.Countdown; cd != nil && (*cd < 0 || *cd > 15360) {
		return fmt.Errorf("invalid countdown period %v", *cd)
	}

	return nil
}

// HistoryFile returns the path to the history file, with a leading ~
// expanded to the home directory.
func (cfg Config) HistoryFile() string {
	fname := cfg.CLI.History
	if fname == "~" || strings.HasPrefix(fname, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		fname = filepath.Join(home, fname[1:])
	}
	return fname
}
