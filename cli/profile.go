// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/go-lpc/rtc/am1815"
	"github.com/go-lpc/rtc/internal/config"
)

// ApplyProfile configures dev according to p.
// Steps run in order: pins, oscillator failure flag, oscillator failover,
// battery switchover, trickle charger, alarm and countdown timer.
// Unset profile entries leave the device untouched.
func ApplyProfile(dev *am1815.Device, p config.ProfileConfig) error {
	if p.DisablePins {
		err := dev.DisablePins()
		if err != nil {
			return fmt.Errorf("cli: could not apply profile: %w", err)
		}
	}

	if p.ClearOscFail {
		err := dev.ClearOscFailure()
		if err != nil {
			return fmt.Errorf("cli: could not apply profile: %w", err)
		}
	}

	if p.OscFailover != nil {
		err := dev.SetOscFailover(*p.OscFailover)
		if err != nil {
			return fmt.Errorf("cli: could not apply profile: %w", err)
		}
	}

	if p.BatSwitchover != nil {
		err := dev.SetBatterySwitchover(*p.BatSwitchover)
		if err != nil {
			return fmt.Errorf("cli: could not apply profile: %w", err)
		}
	}

	if p.Trickle != nil {
		err := dev.SetTrickle(*p.Trickle)
		if err != nil {
			return fmt.Errorf("cli: could not apply profile: %w", err)
		}
	}

	if p.Alarm != nil {
		err := dev.ConfigureAlarm(p.Alarm.Enable, p.Alarm.Pulse)
		if err != nil {
			return fmt.Errorf("cli: could not apply profile: %w", err)
		}
	}

	if p.Countdown != nil {
		_, err := dev.ConfigureCountdown(*p.Countdown)
		if err != nil {
			return fmt.Errorf("cli: could not apply profile: %w", err)
		}
	}

	return nil
}
