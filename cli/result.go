// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
)

// Status is the outcome of a command.
type Status int

const (
	Success         Status = iota // command ran
	ValidationError               // invalid command or arguments, nothing written
	ExitRequested                 // the session should end
)

func (st Status) String() string {
	switch st {
	case Success:
		return "success"
	case ValidationError:
		return "validation-error"
	case ExitRequested:
		return "exit-requested"
	default:
		return fmt.Sprintf("Status(%d)", int(st))
	}
}

// Result is the result of dispatching a command line.
type Result struct {
	Status Status
	Msg    string // diagnostic, for ValidationError
}

// OK returns a successful result.
func OK() Result { return Result{Status: Success} }

// Exit returns a result requesting the end of the session.
func Exit() Result { return Result{Status: ExitRequested} }

// Invalid returns a validation error result.
func Invalid(format string, args ...interface{}) Result {
	return Result{
		Status: ValidationError,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (res Result) String() string {
	if res.Msg == "" {
		return res.Status.String()
	}
	return res.Status.String() + ": " + res.Msg
}
