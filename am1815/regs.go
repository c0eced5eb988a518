// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am1815

// Register addresses.
const (
	RegHundredths = 0x00
	RegSeconds    = 0x01
	RegMinutes    = 0x02
	RegHours      = 0x03
	RegDate       = 0x04
	RegMonths     = 0x05
	RegYears      = 0x06
	RegWeekdays   = 0x07

	RegControl1  = 0x10
	RegControl2  = 0x11
	RegIntMask   = 0x12
	RegStatus    = 0x13
	RegTimerCtrl = 0x18
	RegTimer     = 0x19
	RegTimerInit = 0x1a
	RegOscCtrl   = 0x1c
	RegOscStatus = 0x1d
	RegKey       = 0x1f
	RegTrickle   = 0x20
	RegBatMode   = 0x27
	RegIOCtrl    = 0x30
	RegExtension = 0x3f

	// number of clock registers, hundredths to weekdays.
	nClockRegs = 8
)

// Key is a configuration key written to RegKey to unlock a protected register.
type Key uint8

const (
	KeyOsc Key = 0xa1 // unlocks RegOscCtrl and RegOscStatus
	KeyIO  Key = 0x9d // unlocks RegTrickle, RegBatMode, RegIOCtrl, ...
)

// bit fields.
const (
	// RegControl1
	ctrl1WRTC = 0x01 // counters writable

	// RegControl2
	ctrl2OUT2S = 0x03 // FOUT/nIRQ pin outputs nAIRQ

	// RegIntMask
	imaskAIE = 0x04     // alarm interrupt enable
	imaskIM  = 0x60     // interrupt pulse width
	imaskAIM = 0x64     // alarm enable + pulse width
	imaskIMS = uint8(5) // shift of the IM field

	// RegSeconds
	secInit = 0x80 // general purpose bit, marks an initialized device

	// RegTimerCtrl
	tctrlTE   = 0x80 // countdown timer enable
	tctrlTM   = 0x40 // interrupt mode (pulse when set)
	tctrlTRPT = 0x20 // repeat
	tctrlRPT  = 0x1c // alarm repeat function
	tctrlTFS  = 0x03 // timer clock frequency select

	// RegOscCtrl
	oscFOS = 0x08 // switch to RC oscillator on failure
	oscAOS = 0x10 // switch to RC oscillator on battery

	// RegOscStatus
	ostatOF = 0x02 // oscillator failure

	// RegTrickle
	trickleTCS   = 0xf0
	trickleDiode = 0x0c
	trickleROut  = 0x03

	// RegBatMode
	batIOBM = 0x80 // keep I/O interface enabled on battery

	// RegIOCtrl
	ioUnused = 0xcf // EXBM, WDBM, RSEN, O4EN, O3EN, O1EN

	// RegExtension
	extO4BM = 0x80
)

const (
	trickleOn     = 0xa0 // TCS pattern enabling the trickle charger
	diodeSchottky = 0x04
	rout3k        = 0x01
)
