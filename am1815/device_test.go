// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestDevice(regs map[uint8]uint8) (*Device, *Mem, *bytes.Buffer) {
	var (
		bus = NewMem(regs)
		out = new(bytes.Buffer)
		dev = New(bus, WithOutput(out))
	)
	return dev, bus, out
}

func w(reg uint8, vs ...byte) Op {
	return Op{Write: true, Reg: reg, Data: vs}
}

func r(reg uint8, vs ...byte) Op {
	return Op{Reg: reg, Data: vs}
}

func checkOps(t *testing.T, got, want []Op) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid register operations:\ngot= %v\nwant=%v", got, want)
	}
}

func TestConfigureAlarm(t *testing.T) {
	for pulse := uint8(0); pulse <= MaxPulse; pulse++ {
		t.Run(fmt.Sprintf("enable-pulse-%d", pulse), func(t *testing.T) {
			dev, bus, out := newTestDevice(map[uint8]uint8{
				RegIntMask:   0xff,
				RegControl2:  0x30,
				RegTimerCtrl: 0x81,
			})

			err := dev.ConfigureAlarm(true, pulse)
			if err != nil {
				t.Fatalf("could not configure alarm: %+v", err)
			}

			alarm := bus.Reg(RegIntMask)
			if got, want := Field(alarm, imaskIM), pulse; got != want {
				t.Fatalf("invalid pulse field: got=%d, want=%d", got, want)
			}
			if alarm&imaskAIE == 0 {
				t.Fatalf("alarm interrupt not enabled: 0x%02x", alarm)
			}
			if got, want := alarm&^imaskAIM, uint8(0x9b); got != want {
				t.Fatalf("sibling bits modified: got=0x%02x, want=0x%02x", got, want)
			}

			checkOps(t, bus.Ops(), []Op{
				r(RegIntMask, 0xff),
				w(RegIntMask, 0x9b|pulse<<5|0x04),
				r(RegControl2, 0x30),
				w(RegControl2, 0x33),
				r(RegTimerCtrl, 0x81),
				w(RegTimerCtrl, 0x9d),
			})

			want := fmt.Sprintf("alarm enabled\npulse given: %d\n", pulse)
			if got := out.String(); got != want {
				t.Fatalf("invalid diagnostics:\ngot= %q\nwant=%q", got, want)
			}
		})
	}

	for _, pulse := range []uint8{0, 3, 4, 255} {
		t.Run(fmt.Sprintf("disable-pulse-%d", pulse), func(t *testing.T) {
			dev, bus, out := newTestDevice(map[uint8]uint8{
				RegIntMask: 0x7f,
			})

			err := dev.ConfigureAlarm(false, pulse)
			if err != nil {
				t.Fatalf("could not disable alarm: %+v", err)
			}

			checkOps(t, bus.Writes(), []Op{w(RegIntMask, 0x1b)})
			if got, want := out.String(), "alarm disabled\n"; got != want {
				t.Fatalf("invalid diagnostics: got=%q, want=%q", got, want)
			}
		})
	}

	t.Run("invalid-pulse", func(t *testing.T) {
		dev, bus, _ := newTestDevice(map[uint8]uint8{
			RegIntMask: 0x04,
		})

		err := dev.ConfigureAlarm(true, 4)
		if !errors.Is(err, ErrInvalidPulse) {
			t.Fatalf("invalid error: got=%+v, want=%v", err, ErrInvalidPulse)
		}

		if ws := bus.Writes(); len(ws) != 0 {
			t.Fatalf("unexpected writes: %v", ws)
		}
		if got, want := bus.Reg(RegIntMask), uint8(0x04); got != want {
			t.Fatalf("alarm register modified: got=0x%02x, want=0x%02x", got, want)
		}
	})
}

func TestTimerSetting(t *testing.T) {
	for _, tc := range []struct {
		period float64
		ok     bool
		want   timerSetting
		err    error
	}{
		{period: 0, ok: false},
		{period: 1.0 / 10000, ok: false},
		{period: 1.0 / 4096, ok: true, want: timerSetting{tfs: 0, count: 0, period: 1.0 / 4096}},
		{period: 0.0625, ok: true, want: timerSetting{tfs: 0, count: 255, period: 0.0625}},
		{period: 0.5, ok: true, want: timerSetting{tfs: 1, count: 31, period: 0.5}},
		{period: 4, ok: true, want: timerSetting{tfs: 1, count: 255, period: 4}},
		{period: 10, ok: true, want: timerSetting{tfs: 2, count: 9, period: 10}},
		{period: 10.4, ok: true, want: timerSetting{tfs: 2, count: 9, period: 10}},
		{period: 256, ok: true, want: timerSetting{tfs: 2, count: 255, period: 256}},
		{period: 600, ok: true, want: timerSetting{tfs: 3, count: 9, period: 600}},
		{period: 15360, ok: true, want: timerSetting{tfs: 3, count: 255, period: 15360}},
		{period: 15361, err: ErrTimerRange},
		{period: -1, err: ErrTimerRange},
	} {
		t.Run(fmt.Sprintf("%v", tc.period), func(t *testing.T) {
			got, ok, err := newTimerSetting(tc.period)
			switch {
			case tc.err != nil:
				if !errors.Is(err, tc.err) {
					t.Fatalf("invalid error: got=%+v, want=%v", err, tc.err)
				}
				return
			case err != nil:
				t.Fatalf("could not compute timer setting: %+v", err)
			}
			if ok != tc.ok {
				t.Fatalf("invalid ok: got=%v, want=%v", ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("invalid setting:\ngot= %+v\nwant=%+v", got, tc.want)
			}
		})
	}
}

func TestConfigureCountdown(t *testing.T) {
	t.Run("disable", func(t *testing.T) {
		for _, period := range []float64{0, 1e-5} {
			dev, bus, out := newTestDevice(map[uint8]uint8{
				RegTimerCtrl: 0xff,
			})

			got, err := dev.ConfigureCountdown(period)
			if err != nil {
				t.Fatalf("could not configure countdown: %+v", err)
			}
			if got != 0 {
				t.Fatalf("invalid realized period: got=%v, want=0", got)
			}

			checkOps(t, bus.Writes(), []Op{w(RegTimerCtrl, 0x7f)})
			if got, want := out.String(), "Timer disabled (input is 0 or too close to 0).\n"; got != want {
				t.Fatalf("invalid diagnostics: got=%q, want=%q", got, want)
			}
		}
	})

	t.Run("enable", func(t *testing.T) {
		dev, bus, out := newTestDevice(map[uint8]uint8{
			RegTimerCtrl: 0x1c,
		})

		got, err := dev.ConfigureCountdown(10)
		if err != nil {
			t.Fatalf("could not configure countdown: %+v", err)
		}
		if got != 10 {
			t.Fatalf("invalid realized period: got=%v, want=10", got)
		}

		checkOps(t, bus.Writes(), []Op{
			w(RegTimer, 9),
			w(RegTimerInit, 9),
			w(RegTimerCtrl, 0xfe),
		})
		for _, op := range bus.Writes() {
			if op.Reg == RegTimerCtrl && op.Data[0]&tctrlTE == 0 {
				t.Fatalf("countdown enable bit cleared: %v", op)
			}
		}
		if got, want := out.String(), "Timer set to 10.000000 seconds.\n"; got != want {
			t.Fatalf("invalid diagnostics: got=%q, want=%q", got, want)
		}
	})

	t.Run("out-of-range", func(t *testing.T) {
		dev, bus, _ := newTestDevice(nil)
		_, err := dev.ConfigureCountdown(MaxTimerPeriod + 1)
		if !errors.Is(err, ErrTimerRange) {
			t.Fatalf("invalid error: %+v", err)
		}
		if ws := bus.Writes(); len(ws) != 0 {
			t.Fatalf("unexpected writes: %v", ws)
		}
	})
}

func TestDisablePins(t *testing.T) {
	dev, bus, _ := newTestDevice(map[uint8]uint8{
		RegIOCtrl:    0xff,
		RegExtension: 0xff,
		RegBatMode:   0xff,
	})

	err := dev.DisablePins()
	if err != nil {
		t.Fatalf("could not disable pins: %+v", err)
	}

	checkOps(t, bus.Ops(), []Op{
		r(RegIOCtrl, 0xff),
		w(RegIOCtrl, 0x30),
		r(RegExtension, 0xff),
		w(RegExtension, 0x7f),
		r(RegBatMode, 0xff),
		w(RegKey, uint8(KeyIO)),
		w(RegBatMode, 0x7f),
	})

	first := bus.Snapshot()
	bus.Reset()

	err = dev.DisablePins()
	if err != nil {
		t.Fatalf("could not disable pins again: %+v", err)
	}
	if second := bus.Snapshot(); second != first {
		t.Fatalf("disabling pins is not idempotent")
	}
}

func TestWriteProtected(t *testing.T) {
	dev, bus, _ := newTestDevice(nil)

	err := dev.WriteProtected(KeyOsc, RegOscCtrl, 0x18)
	if err != nil {
		t.Fatalf("could not write protected register: %+v", err)
	}
	checkOps(t, bus.Ops(), []Op{
		w(RegKey, 0xa1),
		w(RegOscCtrl, 0x18),
	})
}

func TestOscillatorFlags(t *testing.T) {
	for _, tc := range []struct {
		name   string
		f      func(dev *Device, on bool) error
		on     bool
		reg    uint8
		want   uint8
		output string
	}{
		{
			name: "failover-on",
			f:    (*Device).SetOscFailover,
			on:   true, reg: 0x40, want: 0x48,
			output: "enabled automatic switching when an oscillator failure is detected\n",
		},
		{
			name: "failover-off",
			f:    (*Device).SetOscFailover,
			on:   false, reg: 0xff, want: 0xf7,
			output: "disabled automatic switching when an oscillator failure is detected\n",
		},
		{
			name: "batover-on",
			f:    (*Device).SetBatterySwitchover,
			on:   true, reg: 0x08, want: 0x18,
			output: "enabled automatic switching when battery powered\n",
		},
		{
			name: "batover-off",
			f:    (*Device).SetBatterySwitchover,
			on:   false, reg: 0x18, want: 0x08,
			output: "disabled automatic switching when battery powered\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, bus, out := newTestDevice(map[uint8]uint8{
				RegOscCtrl: tc.reg,
			})
			err := tc.f(dev, tc.on)
			if err != nil {
				t.Fatalf("could not configure oscillator: %+v", err)
			}
			checkOps(t, bus.Ops(), []Op{
				r(RegOscCtrl, tc.reg),
				w(RegKey, uint8(KeyOsc)),
				w(RegOscCtrl, tc.want),
			})
			if got := out.String(); got != tc.output {
				t.Fatalf("invalid diagnostics:\ngot= %q\nwant=%q", got, tc.output)
			}
		})
	}
}

func TestClearOscFailure(t *testing.T) {
	dev, bus, _ := newTestDevice(map[uint8]uint8{
		RegOscStatus: 0x13,
	})
	err := dev.ClearOscFailure()
	if err != nil {
		t.Fatalf("could not clear oscillator failure: %+v", err)
	}
	checkOps(t, bus.Ops(), []Op{
		r(RegOscStatus, 0x13),
		w(RegKey, uint8(KeyOsc)),
		w(RegOscStatus, 0x11),
	})

	failed, err := dev.OscFailure()
	if err != nil {
		t.Fatalf("could not read oscillator failure flag: %+v", err)
	}
	if failed {
		t.Fatalf("oscillator failure flag still set")
	}
}

func TestOscFailure(t *testing.T) {
	dev, _, _ := newTestDevice(map[uint8]uint8{
		RegOscStatus: 0x02,
	})
	failed, err := dev.OscFailure()
	if err != nil {
		t.Fatalf("could not read oscillator failure flag: %+v", err)
	}
	if !failed {
		t.Fatalf("oscillator failure flag not reported")
	}
}

func TestTrickle(t *testing.T) {
	dev, bus, out := newTestDevice(nil)

	err := dev.SetTrickle(true)
	if err != nil {
		t.Fatalf("could not enable trickle charger: %+v", err)
	}
	if got, want := bus.Reg(RegTrickle), uint8(0xa5); got != want {
		t.Fatalf("invalid trickle register: got=0x%02x, want=0x%02x", got, want)
	}

	err = dev.SetTrickle(false)
	if err != nil {
		t.Fatalf("could not disable trickle charger: %+v", err)
	}
	if got, want := bus.Reg(RegTrickle), uint8(0x05); got != want {
		t.Fatalf("invalid trickle register: got=0x%02x, want=0x%02x", got, want)
	}

	checkOps(t, bus.Writes(), []Op{
		w(RegKey, uint8(KeyIO)),
		w(RegTrickle, 0xa5),
		w(RegKey, uint8(KeyIO)),
		w(RegTrickle, 0x05),
	})
	if got, want := out.String(), "trickle charging enabled\ntrickle charging disabled\n"; got != want {
		t.Fatalf("invalid diagnostics: got=%q, want=%q", got, want)
	}
}

func TestInit(t *testing.T) {
	dev, bus, _ := newTestDevice(map[uint8]uint8{
		RegSeconds: 0x42,
	})

	ok, err := dev.Initialized()
	if err != nil {
		t.Fatalf("could not check device: %+v", err)
	}
	if ok {
		t.Fatalf("device should not be initialized")
	}

	err = dev.Init()
	if err != nil {
		t.Fatalf("could not initialize device: %+v", err)
	}

	ok, err = dev.Initialized()
	if err != nil {
		t.Fatalf("could not check device: %+v", err)
	}
	if !ok {
		t.Fatalf("device should be initialized")
	}

	if got, want := bus.Reg(RegSeconds), uint8(0xc2); got != want {
		t.Fatalf("invalid seconds register: got=0x%02x, want=0x%02x", got, want)
	}
	if got, want := bus.Reg(RegIntMask), uint8(0x24); got != want {
		t.Fatalf("invalid alarm register: got=0x%02x, want=0x%02x", got, want)
	}
	if got, want := bus.Reg(RegIOCtrl), uint8(0x01); got != want {
		t.Fatalf("invalid output control register: got=0x%02x, want=0x%02x", got, want)
	}
}

func TestReadBulk(t *testing.T) {
	regs := make(map[uint8]uint8)
	for i := 0; i < NumRegs; i++ {
		regs[uint8(i)] = uint8(255 - i)
	}
	dev, _, _ := newTestDevice(regs)

	got, err := dev.ReadBulk(0x00, 5)
	if err != nil {
		t.Fatalf("could not read bulk: %+v", err)
	}
	want := make([]byte, 5)
	for i := range want {
		want[i], err = dev.ReadRegister(uint8(i))
		if err != nil {
			t.Fatalf("could not read register %d: %+v", i, err)
		}
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("invalid bulk read:\ngot= % x\nwant=% x", got, want)
	}

	_, err = dev.ReadBulk(0xff, 2)
	if !errors.Is(err, ErrAddrRange) {
		t.Fatalf("invalid error: %+v", err)
	}

	got, err = dev.ReadBulk(0xff, 1)
	if err != nil {
		t.Fatalf("could not read last register: %+v", err)
	}
	if !bytes.Equal(got, []byte{0x00}) {
		t.Fatalf("invalid last register: % x", got)
	}
}

func TestTime(t *testing.T) {
	dev, bus, _ := newTestDevice(map[uint8]uint8{
		RegSeconds:  secInit,
		RegControl1: ctrl112,
	})

	want := time.Date(2023, time.July, 14, 13, 37, 42, 560_000_000, time.UTC)
	err := dev.WriteTime(want.Add(3 * time.Millisecond))
	if err != nil {
		t.Fatalf("could not write time: %+v", err)
	}

	if got, want := bus.Reg(RegControl1), uint8(ctrl1WRTC); got != want {
		t.Fatalf("invalid control1 register: got=0x%02x, want=0x%02x", got, want)
	}
	if got := bus.Reg(RegSeconds); got&secInit == 0 {
		t.Fatalf("initialization marker lost: 0x%02x", got)
	}

	var clock []Op
	for _, op := range bus.Writes() {
		if op.Reg == RegHundredths {
			clock = append(clock, op)
		}
	}
	checkOps(t, clock, []Op{
		w(RegHundredths, 0x56, 0x42|secInit, 0x37, 0x13, 0x14, 0x07, 0x23, 0x05),
	})

	got, err := dev.ReadTime()
	if err != nil {
		t.Fatalf("could not read time: %+v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("invalid time:\ngot= %v\nwant=%v", got, want)
	}

	got, err = dev.AdjustTime(-1500 * time.Millisecond)
	if err != nil {
		t.Fatalf("could not adjust time: %+v", err)
	}
	if want := want.Add(-1500 * time.Millisecond); !got.Equal(want) {
		t.Fatalf("invalid adjusted time:\ngot= %v\nwant=%v", got, want)
	}

	bus.Reset()
	err = dev.WriteTime(time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC))
	if !errors.Is(err, ErrTimeRange) {
		t.Fatalf("invalid error: %+v", err)
	}
	if ws := bus.Writes(); len(ws) != 0 {
		t.Fatalf("unexpected writes: %v", ws)
	}
}

func TestReadTime12h(t *testing.T) {
	for _, tc := range []struct {
		name  string
		hours uint8
		want  int
	}{
		{"12am", 0x12, 0},
		{"1am", 0x01, 1},
		{"11am", 0x11, 11},
		{"12pm", hoursPM | 0x12, 12},
		{"1pm", hoursPM | 0x01, 13},
		{"11pm", hoursPM | 0x11, 23},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, _, _ := newTestDevice(map[uint8]uint8{
				RegMinutes:  0x30,
				RegHours:    tc.hours,
				RegDate:     0x01,
				RegMonths:   0x02,
				RegYears:    0x24,
				RegControl1: ctrl112,
			})
			got, err := dev.ReadTime()
			if err != nil {
				t.Fatalf("could not read time: %+v", err)
			}
			want := time.Date(2024, time.February, 1, tc.want, 30, 0, 0, time.UTC)
			if !got.Equal(want) {
				t.Fatalf("invalid time:\ngot= %v\nwant=%v", got, want)
			}
		})
	}
}

type failingBus struct {
	Mem
	after int // number of successful operations
}

var errBus = errors.New("bus failure")

func (bus *failingBus) fail() error {
	if bus.after <= 0 {
		return errBus
	}
	bus.after--
	return nil
}

func (bus *failingBus) ReadReg(reg uint8) (uint8, error) {
	if err := bus.fail(); err != nil {
		return 0, err
	}
	return bus.Mem.ReadReg(reg)
}

func (bus *failingBus) WriteReg(reg, v uint8) error {
	if err := bus.fail(); err != nil {
		return err
	}
	return bus.Mem.WriteReg(reg, v)
}

func TestTransportError(t *testing.T) {
	for _, tc := range []struct {
		name  string
		after int
		f     func(dev *Device) error
		want  string
	}{
		{
			name: "read-register",
			f: func(dev *Device) error {
				_, err := dev.ReadRegister(0x12)
				return err
			},
			want: "am1815: could not read register 0x12: bus failure",
		},
		{
			name:  "alarm",
			after: 3,
			f: func(dev *Device) error {
				return dev.ConfigureAlarm(true, 2)
			},
			want: "am1815: could not enable alarm: bus failure",
		},
		{
			name:  "key-write",
			after: 1,
			f:     (*Device).ClearOscFailure,
			want:  "am1815: could not clear oscillator failure flag: bus failure",
		},
		{
			name:  "disable-pins",
			after: 4,
			f:     (*Device).DisablePins,
			want:  "am1815: could not disable pins: bus failure",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bus := &failingBus{after: tc.after}
			dev := New(bus, WithOutput(io.Discard))
			err := tc.f(dev)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !errors.Is(err, errBus) {
				t.Fatalf("error does not wrap bus failure: %+v", err)
			}
			if got := err.Error(); got != tc.want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, tc.want)
			}

			// the device recovers from a previous failure.
			bus.after = 1
			_, err = dev.ReadRegister(0x00)
			if err != nil {
				t.Fatalf("device did not recover: %+v", err)
			}
		})
	}

	t.Run("key-write-aborts-target-write", func(t *testing.T) {
		bus := &failingBus{after: 1}
		dev := New(bus, WithOutput(io.Discard))
		_ = dev.ClearOscFailure()
		for _, op := range bus.Writes() {
			if op.Reg == RegOscStatus {
				t.Fatalf("protected register written after failed unlock")
			}
		}
		if !strings.Contains(fmt.Sprint(bus.Ops()), "r(0x1d") {
			t.Fatalf("missing oscillator status read: %v", bus.Ops())
		}
	})
}
