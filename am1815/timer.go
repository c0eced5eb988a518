// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"errors"
	"fmt"
	"math"
)

// MaxTimerPeriod is the longest countdown period, in seconds:
// 256 ticks of the 1/60Hz timer clock.
const MaxTimerPeriod = 256 * 60

var (
	// ErrTimerRange is returned for countdown periods outside [0, MaxTimerPeriod].
	ErrTimerRange = errors.New("am1815: countdown period out of range")
)

// timer clock periods in seconds (4096Hz, 64Hz, 1Hz, 1/60Hz), finest
// first, indexed by TFS.
var timerTicks = [...]float64{
	0: 1.0 / 4096,
	1: 1.0 / 64,
	2: 1,
	3: 60,
}

type timerSetting struct {
	tfs    uint8   // timer frequency select
	count  uint8   // timer (initial) value
	period float64 // realized period, in seconds
}

// newTimerSetting picks the finest timer clock able to count period and
// rounds period to the nearest number of ticks of that clock.
// It returns false when period rounds to zero ticks.
func newTimerSetting(period float64) (timerSetting, bool, error) {
	if math.IsNaN(period) || period < 0 || period > MaxTimerPeriod {
		return timerSetting{}, false, fmt.Errorf("%w: %v", ErrTimerRange, period)
	}

	for tfs, tick := range timerTicks {
		if period > 256*tick {
			continue
		}
		n := math.Round(period / tick)
		if n < 1 {
			return timerSetting{}, false, nil
		}
		return timerSetting{
			tfs:    uint8(tfs),
			count:  uint8(n - 1),
			period: n * tick,
		}, true, nil
	}
	panic("unreachable")
}

// WriteTimer programs the countdown timer registers with the requested
// period, in seconds, and returns the realized period.
//
// The realized period is the requested one rounded to the resolution of
// the timer clock. When it rounds to 0, nothing is written and WriteTimer
// returns 0.
func (dev *Device) WriteTimer(period float64) (float64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.err = nil
	return dev.writeTimer(period)
}

func (dev *Device) writeTimer(period float64) (float64, error) {
	cfg, ok, err := newTimerSetting(period)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	dev.writeReg(RegTimer, cfg.count)
	dev.writeReg(RegTimerInit, cfg.count)
	dev.update(
		RegTimerCtrl,
		tctrlTE|tctrlTM|tctrlTRPT|tctrlTFS,
		tctrlTE|tctrlTM|tctrlTRPT|cfg.tfs,
	)
	if err := dev.wrap("program countdown timer"); err != nil {
		return 0, err
	}
	return cfg.period, nil
}
