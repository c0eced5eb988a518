// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-lpc/rtc/am1815"
)

const appName = "AM1815 RTC Configuration"

// range of set_time seconds: the device calendar holds years 2000-2099.
var (
	minTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxTime = time.Date(2099, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

func (s *Session) commands() []Command {
	return []Command{
		{Name: "exit", Help: "Exit this application", Handler: HandlerFunc(s.cmdExit)},
		{Name: "?", Help: "Check the application name", Handler: HandlerFunc(s.cmdName)},
		{Name: "history", Help: "Get CLI history", Handler: HandlerFunc(s.cmdHistory)},
		{Name: "help", Help: "Get the list of commands, or help for a specific one", Handler: HandlerFunc(s.cmdHelp)},
		{Name: "echo", Help: "Toggle console echo", Handler: HandlerFunc(s.cmdEcho)},
		{Name: "read", Help: "Read a register: read <addr>", Handler: HandlerFunc(s.cmdRead)},
		{Name: "read_bulk", Help: "Read a series of registers: read_bulk <addr> <size>", Handler: HandlerFunc(s.cmdReadBulk)},
		{Name: "write", Help: "Write to a register: write <addr> <data>", Handler: HandlerFunc(s.cmdWrite)},
		{Name: "trickle", Help: "Control trickle charging: trickle <0|1>", Handler: HandlerFunc(s.cmdTrickle)},
		{Name: "disable_pin", Help: "Disable default pins", Handler: HandlerFunc(s.cmdDisablePin)},
		{Name: "prog_osc", Help: "Clear the oscillator failure flag", Handler: HandlerFunc(s.cmdProgOsc)},
		{Name: "osc_failover", Help: "Configure oscillator failover: osc_failover <0|1>", Handler: HandlerFunc(s.cmdOscFailover)},
		{Name: "osc_batover", Help: "Configure oscillator switchover on battery: osc_batover <0|1>", Handler: HandlerFunc(s.cmdOscBatover)},
		{Name: "alarm", Help: "Configure alarm: alarm <true|false> <pulse 0-3>", Handler: HandlerFunc(s.cmdAlarm)},
		{Name: "countdown", Help: "Configure countdown timer to (0, 15360]s, 0 disables it", Handler: HandlerFunc(s.cmdCountdown)},
		{Name: "init", Help: "Mark the RTC as initialized and enable the alarm", Handler: HandlerFunc(s.cmdInit)},
		{Name: "get_time", Help: "Get RTC's time", Handler: HandlerFunc(s.cmdGetTime)},
		{Name: "set_time", Help: "Set RTC to a specified time: set_time <seconds> <hundredths>", Handler: HandlerFunc(s.cmdSetTime)},
		{Name: "change_time", Help: "Change RTC time by an offset: change_time <seconds>", Handler: HandlerFunc(s.cmdChangeTime)},
		{Name: "sync_time", Help: "Set RTC to the host time", Handler: HandlerFunc(s.cmdSyncTime)},
		{Name: "offset", Help: "Measure the RTC offset to the host time: offset [samples]", Handler: HandlerFunc(s.cmdOffset)},
		{Name: "apply", Help: "Apply the configured device profile", Handler: HandlerFunc(s.cmdApply)},
	}
}

func badArg(err error) (Result, error) {
	var aerr *argError
	if errors.As(err, &aerr) {
		return Invalid("%s", aerr.msg), nil
	}
	return Result{}, err
}

// busError reports addresses the transport cannot reach as validation
// errors, other errors as transport failures.
func busError(err error, addr uint8) (Result, error) {
	if errors.Is(err, am1815.ErrAddrRange) {
		return Invalid("address 0x%02x out of range for this bus", addr), nil
	}
	return Result{}, err
}

func (s *Session) cmdExit(line string) (Result, error) {
	return Exit(), nil
}

func (s *Session) cmdName(line string) (Result, error) {
	fmt.Fprintln(s.out, appName)
	return OK(), nil
}

func (s *Session) cmdHistory(line string) (Result, error) {
	for i, h := range s.editor.History() {
		fmt.Fprintf(s.out, "%d %s\n", i+1, h)
	}
	return OK(), nil
}

func (s *Session) cmdHelp(line string) (Result, error) {
	name, ok := newArgs(line).next()
	if !ok {
		for _, cmd := range s.reg.Commands() {
			fmt.Fprintf(s.out, "%s - %s\n", cmd.Name, cmd.Help)
		}
		return OK(), nil
	}

	cmd, ok := s.reg.Lookup(name)
	if !ok {
		return Invalid("unknown command %q", name), nil
	}
	fmt.Fprintf(s.out, "%s - %s\n", cmd.Name, cmd.Help)
	return OK(), nil
}

func (s *Session) cmdEcho(line string) (Result, error) {
	s.echo = !s.echo
	return OK(), nil
}

func (s *Session) cmdRead(line string) (Result, error) {
	addr, err := newArgs(line).u8("address")
	if err != nil {
		return badArg(err)
	}

	v, err := s.dev.ReadRegister(addr)
	if err != nil {
		return busError(err, addr)
	}
	fmt.Fprintf(s.out, "%d\n", v)
	return OK(), nil
}

func (s *Session) cmdReadBulk(line string) (Result, error) {
	args := newArgs(line)
	addr, err := args.u8("address")
	if err != nil {
		return badArg(err)
	}
	size, err := args.integer("size", 1, 255)
	if err != nil {
		return badArg(err)
	}
	if int(addr)+int(size) > am1815.NumRegs {
		return Invalid("registers [0x%02x, 0x%02x) out of range", addr, int(addr)+int(size)), nil
	}

	vs, err := s.dev.ReadBulk(addr, int(size))
	if err != nil {
		return busError(err, addr)
	}

	o := new(strings.Builder)
	for i, v := range vs {
		if i > 0 {
			o.WriteString(" ")
		}
		fmt.Fprintf(o, "0x%X", v)
	}
	fmt.Fprintln(s.out, o.String())
	return OK(), nil
}

func (s *Session) cmdWrite(line string) (Result, error) {
	args := newArgs(line)
	addr, err := args.u8("address")
	if err != nil {
		return badArg(err)
	}
	data, err := args.u8("data")
	if err != nil {
		return badArg(err)
	}

	err = s.dev.WriteRegister(addr, data)
	if err != nil {
		return busError(err, addr)
	}
	return OK(), nil
}

func (s *Session) cmdTrickle(line string) (Result, error) {
	on, err := newArgs(line).flag("argument")
	if err != nil {
		return badArg(err)
	}
	return OK(), s.dev.SetTrickle(on)
}

func (s *Session) cmdDisablePin(line string) (Result, error) {
	return OK(), s.dev.DisablePins()
}

func (s *Session) cmdProgOsc(line string) (Result, error) {
	return OK(), s.dev.ClearOscFailure()
}

func (s *Session) cmdOscFailover(line string) (Result, error) {
	on, err := newArgs(line).flag("argument")
	if err != nil {
		return badArg(err)
	}
	return OK(), s.dev.SetOscFailover(on)
}

func (s *Session) cmdOscBatover(line string) (Result, error) {
	on, err := newArgs(line).flag("argument")
	if err != nil {
		return badArg(err)
	}
	return OK(), s.dev.SetBatterySwitchover(on)
}

func (s *Session) cmdAlarm(line string) (Result, error) {
	args := newArgs(line)
	tok, ok := args.next()
	if !ok {
		return Invalid("no enable argument provided"), nil
	}
	var enable bool
	switch tok {
	case "true":
		enable = true
	case "false":
		enable = false
	default:
		return Invalid("invalid enable argument"), nil
	}

	pulse, err := args.integer("pulse argument", 0, am1815.MaxPulse)
	if err != nil {
		return badArg(err)
	}

	err = s.dev.ConfigureAlarm(enable, uint8(pulse))
	if errors.Is(err, am1815.ErrInvalidPulse) {
		return Invalid("invalid pulse argument"), nil
	}
	return OK(), err
}

func (s *Session) cmdCountdown(line string) (Result, error) {
	period, err := newArgs(line).number("argument", 0, am1815.MaxTimerPeriod)
	if err != nil {
		return badArg(err)
	}

	_, err = s.dev.ConfigureCountdown(period)
	if err != nil {
		return Result{}, err
	}
	return OK(), nil
}

func (s *Session) cmdInit(line string) (Result, error) {
	return OK(), s.dev.Init()
}

func (s *Session) cmdGetTime(line string) (Result, error) {
	t, err := s.dev.ReadTime()
	if err != nil {
		return Result{}, err
	}
	fmt.Fprintf(s.out, "RTC's current time: %d seconds, %d microseconds\n",
		t.Unix(), t.Nanosecond()/int(time.Microsecond),
	)
	return OK(), nil
}

func (s *Session) cmdSetTime(line string) (Result, error) {
	args := newArgs(line)
	secs, err := args.integer("seconds argument", minTime, maxTime)
	if err != nil {
		return badArg(err)
	}
	hund, err := args.integer("hundredths argument", 0, 99)
	if err != nil {
		return badArg(err)
	}

	usecs := hund * 10_000
	err = s.dev.WriteTime(time.Unix(secs, usecs*int64(time.Microsecond)))
	if err != nil {
		return Result{}, err
	}
	return OK(), nil
}

func (s *Session) cmdChangeTime(line string) (Result, error) {
	offset, err := newArgs(line).number("offset argument", -float64(maxTime), float64(maxTime))
	if err != nil {
		return badArg(err)
	}

	d := time.Duration(offset * float64(time.Second))
	t, err := s.dev.AdjustTime(d)
	switch {
	case errors.Is(err, am1815.ErrTimeRange):
		return Invalid("offset %v moves RTC time out of range", d), nil
	case err != nil:
		return Result{}, err
	}
	fmt.Fprintf(s.out, "RTC's time changed by %v: %d seconds, %d microseconds\n",
		d, t.Unix(), t.Nanosecond()/int(time.Microsecond),
	)
	return OK(), nil
}

func (s *Session) cmdSyncTime(line string) (Result, error) {
	now := s.now()
	err := s.dev.WriteTime(now)
	switch {
	case errors.Is(err, am1815.ErrTimeRange):
		return Invalid("host time %v out of range", now), nil
	case err != nil:
		return Result{}, err
	}
	fmt.Fprintf(s.out, "RTC's time set to %d seconds, %d microseconds\n",
		now.Unix(), now.Nanosecond()/int(time.Microsecond),
	)
	return OK(), nil
}

func (s *Session) cmdOffset(line string) (Result, error) {
	n := int64(10)
	args := newArgs(line)
	if len(args.toks) > 0 {
		var err error
		n, err = args.integer("samples argument", 1, 1000)
		if err != nil {
			return badArg(err)
		}
	}

	var sum time.Duration
	for i := int64(0); i < n; i++ {
		beg := s.now()
		t, err := s.dev.ReadTime()
		if err != nil {
			return Result{}, err
		}
		end := s.now()
		host := beg.Add(end.Sub(beg) / 2)
		sum += t.Sub(host)
	}
	mean := sum / time.Duration(n)
	fmt.Fprintf(s.out, "RTC offset: %.6f seconds (%d samples)\n", mean.Seconds(), n)
	return OK(), nil
}

func (s *Session) cmdApply(line string) (Result, error) {
	return OK(), ApplyProfile(s.dev, s.profile)
}
