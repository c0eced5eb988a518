// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rtc-ctl is an interactive console to configure an AM1815 RTC.
//
// Usage:
//
//	$> rtc-ctl [OPTIONS]
//
// Example:
//
//	$> rtc-ctl -i2c-bus=1
//	> get_time
//	RTC's current time: 1700000000 seconds, 500000 microseconds
//	> countdown 10
//	am1815: Timer set to 10.000000 seconds.
//	> exit
//	Exiting....
package main // import "github.com/go-lpc/rtc/cmd/rtc-ctl"

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/go-lpc/rtc"
	"github.com/go-lpc/rtc/am1815"
	"github.com/go-lpc/rtc/cli"
	"github.com/go-lpc/rtc/internal/config"
)

func main() {
	var (
		fname   = flag.String("cfg", "", "path to YAML configuration file")
		kind    = flag.String("bus", "i2c", "register transport (i2c, spi, mem, file)")
		i2cBus  = flag.Int("i2c-bus", 1, "I2C adapter number (/dev/i2c-N)")
		i2cAddr = flag.Uint("i2c-addr", am1815.I2CAddr, "I2C address of the RTC")
		spiDev  = flag.String("spi-dev", "/dev/spidev0.0", "spidev device")
		spiFreq = flag.Uint("spi-speed", 2000000, "SPI clock speed (Hz)")
		sim     = flag.String("sim", "", "path to a simulated register image (implies -bus=file)")
		echo    = flag.Bool("echo", true, "display a prompt")
		hist    = flag.String("history", "~/.rtc_history", "path to the history file")
		vers    = flag.Bool("version", false, "print version and exit")
	)

	log.SetPrefix("rtc-ctl: ")
	log.SetFlags(0)

	flag.Parse()

	if *vers {
		v, sum := rtc.Version()
		fmt.Printf("rtc-ctl %s %s\n", v, sum)
		return
	}

	cfg, err := config.Load(*fname)
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bus":
			cfg.Bus.Kind = *kind
		case "i2c-bus":
			cfg.Bus.I2C.Bus = *i2cBus
		case "i2c-addr":
			cfg.Bus.I2C.Addr = uint8(*i2cAddr)
		case "spi-dev":
			cfg.Bus.SPI.Device = *spiDev
		case "spi-speed":
			cfg.Bus.SPI.Speed = uint32(*spiFreq)
		case "sim":
			cfg.Bus.Kind = "file"
			cfg.Bus.File = *sim
		case "echo":
			cfg.CLI.Echo = *echo
		case "history":
			cfg.CLI.History = *hist
		}
	})
	if *i2cAddr > 0x7f {
		log.Fatalf("invalid i2c address 0x%x", *i2cAddr)
	}

	err = cfg.Validate()
	if err != nil {
		log.Fatalf("invalid configuration: %+v", err)
	}

	err = run(context.Background(), cfg)
	if err != nil {
		log.Fatalf("could not run rtc-ctl: %+v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	bus, err := cfg.Bus.Open()
	if err != nil {
		return fmt.Errorf("could not open RTC: %w", err)
	}

	dev := am1815.New(bus)

	var sess *cli.Session
	editor := cli.NewLineEditor(cfg.HistoryFile(), cfg.CLI.HistorySize, func(line string) []string {
		return sess.Complete(line)
	})

	sess = cli.NewSession(
		dev, editor,
		cli.WithEcho(cfg.CLI.Echo),
		cli.WithProfile(cfg.Profile),
	)

	err = sess.Run(ctx)

	if e := editor.Close(); e != nil && err == nil {
		err = fmt.Errorf("could not save history: %w", e)
	}

	if e := bus.Close(); e != nil && err == nil {
		err = fmt.Errorf("could not close RTC: %w", e)
	}

	return err
}
