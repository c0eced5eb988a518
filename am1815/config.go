// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"errors"
	"fmt"
)

// MaxPulse is the largest alarm interrupt pulse-width selector.
const MaxPulse = 3

var (
	// ErrInvalidPulse is returned when an alarm pulse selector is out of range.
	ErrInvalidPulse = errors.New("am1815: invalid alarm pulse")
)

// ConfigureAlarm enables or disables the alarm interrupt.
//
// When enabled, the alarm interrupt is routed to the FOUT/nIRQ pin with
// the requested pulse width (0 selects a level interrupt) and repeats
// once per second.
// An invalid pulse leaves the device untouched.
func (dev *Device) ConfigureAlarm(enable bool, pulse uint8) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	return dev.configureAlarm(enable, pulse)
}

func (dev *Device) configureAlarm(enable bool, pulse uint8) error {
	alarm := ClearBits(dev.readReg(RegIntMask), imaskAIM)
	if dev.err != nil {
		return dev.wrap("configure alarm")
	}

	if !enable {
		dev.msg.Printf("alarm disabled")
		dev.writeReg(RegIntMask, alarm)
		return dev.wrap("disable alarm")
	}
	dev.msg.Printf("alarm enabled")

	if pulse > MaxPulse {
		return fmt.Errorf("%w %d (max=%d)", ErrInvalidPulse, pulse, MaxPulse)
	}
	dev.msg.Printf("pulse given: %d", pulse)

	dev.writeReg(RegIntMask, SetField(alarm, imaskAIM, pulse<<imaskIMS|imaskAIE))

	// FOUT/nIRQ pin outputs nAIRQ.
	dev.update(RegControl2, ctrl2OUT2S, ctrl2OUT2S)

	// alarm repeats once per second (when the hundredths alarm is 0).
	dev.update(RegTimerCtrl, tctrlRPT, tctrlRPT)

	return dev.wrap("enable alarm")
}

// ConfigureCountdown programs the countdown timer with the requested
// period, in seconds, and returns the period realized by the device.
// A period that cannot be represented (0 or too close to 0) disables the
// countdown timer.
func (dev *Device) ConfigureCountdown(period float64) (float64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	realized, err := dev.writeTimer(period)
	if err != nil {
		return 0, err
	}

	if realized == 0 {
		dev.update(RegTimerCtrl, tctrlTE, 0)
		if err := dev.wrap("disable countdown timer"); err != nil {
			return 0, err
		}
		dev.msg.Printf("Timer disabled (input is 0 or too close to 0).")
		return 0, nil
	}

	dev.msg.Printf("Timer set to %f seconds.", realized)
	return realized, nil
}

// DisablePins disables all the pins except the serial interface and VBAT,
// and disables the serial interface when running from the battery.
func (dev *Device) DisablePins() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	dev.disablePins()
	return dev.wrap("disable pins")
}

func (dev *Device) disablePins() {
	dev.update(RegIOCtrl, ioUnused, 0)
	dev.update(RegExtension, extO4BM, 0)

	iobm := ClearBits(dev.readReg(RegBatMode), batIOBM)
	dev.writeProtected(KeyIO, RegBatMode, iobm)
}

// SetOscFailover enables or disables the automatic switch to the RC
// oscillator when an oscillator failure is detected.
func (dev *Device) SetOscFailover(enable bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	dev.setOscFlag(oscFOS, enable)
	if err := dev.wrap("configure oscillator failover"); err != nil {
		return err
	}
	dev.msg.Printf("%s automatic switching when an oscillator failure is detected", state(enable))
	return nil
}

// SetBatterySwitchover enables or disables the automatic switch to the RC
// oscillator when running from the battery.
func (dev *Device) SetBatterySwitchover(enable bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	dev.setOscFlag(oscAOS, enable)
	if err := dev.wrap("configure battery switchover"); err != nil {
		return err
	}
	dev.msg.Printf("%s automatic switching when battery powered", state(enable))
	return nil
}

func (dev *Device) setOscFlag(mask uint8, enable bool) {
	v := SetFlag(dev.readReg(RegOscCtrl), mask, enable)
	dev.writeProtected(KeyOsc, RegOscCtrl, v)
}

// ClearOscFailure clears the oscillator failure flag, so that a failure
// is not reported at start up.
func (dev *Device) ClearOscFailure() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	v := ClearBits(dev.readReg(RegOscStatus), ostatOF)
	dev.writeProtected(KeyOsc, RegOscStatus, v)
	return dev.wrap("clear oscillator failure flag")
}

// OscFailure reports whether the oscillator failure flag is set.
func (dev *Device) OscFailure() (bool, error) {
	v, err := dev.ReadRegister(RegOscStatus)
	if err != nil {
		return false, err
	}
	return v&ostatOF != 0, nil
}

// SetTrickle enables or disables the trickle charger of the backup
// battery.
//
// Enabling the charger is a full-register write: Schottky diode and 3kΩ
// series resistor.
func (dev *Device) SetTrickle(enable bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	v := dev.readReg(RegTrickle)
	switch {
	case enable:
		v = SetField(v, trickleTCS|trickleDiode|trickleROut, trickleOn|diodeSchottky|rout3k)
	default:
		v = ClearBits(v, trickleTCS)
	}
	dev.writeProtected(KeyIO, RegTrickle, v)
	if err := dev.wrap("configure trickle charger"); err != nil {
		return err
	}
	dev.msg.Printf("trickle charging %s", state(enable))
	return nil
}

// Init marks the device as initialized, enables the alarm with a 1/8192s
// pulse and enables the output control (full-register write of 0x01).
func (dev *Device) Init() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	dev.update(RegSeconds, secInit, secInit)
	if err := dev.wrap("mark device as initialized"); err != nil {
		return err
	}

	err := dev.configureAlarm(true, 1)
	if err != nil {
		return err
	}

	dev.writeProtected(KeyIO, RegIOCtrl, 0x01)
	return dev.wrap("initialize output control")
}

// Initialized reports whether Init was run on the device.
func (dev *Device) Initialized() (bool, error) {
	v, err := dev.ReadRegister(RegSeconds)
	if err != nil {
		return false, err
	}
	return v&secInit != 0, nil
}

func state(enable bool) string {
	if enable {
		return "enabled"
	}
	return "disabled"
}
