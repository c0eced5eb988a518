// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var errSyntax = errors.New("invalid syntax")

// args iterates over the arguments of a command line.
type args struct {
	toks []string
}

func newArgs(line string) *args {
	toks := Tokenize(line)
	if len(toks) > 0 {
		toks = toks[1:]
	}
	return &args{toks: toks}
}

func (a *args) next() (string, bool) {
	if len(a.toks) == 0 {
		return "", false
	}
	tok := a.toks[0]
	a.toks = a.toks[1:]
	return tok, true
}

// argError is an invalid or missing command argument.
type argError struct {
	msg string
}

func (err *argError) Error() string { return err.msg }

func missing(name string) error {
	return &argError{msg: fmt.Sprintf("no %s provided", name)}
}

func invalid(name string) error {
	return &argError{msg: fmt.Sprintf("invalid %s", name)}
}

// integer returns the next argument as an integer in [lo, hi].
func (a *args) integer(name string, lo, hi int64) (int64, error) {
	tok, ok := a.next()
	if !ok {
		return 0, missing(name)
	}
	v, err := parseInt(tok)
	if err != nil || v < lo || v > hi {
		return 0, invalid(name)
	}
	return v, nil
}

// u8 returns the next argument as a register address or value.
func (a *args) u8(name string) (uint8, error) {
	v, err := a.integer(name, 0, math.MaxUint8)
	return uint8(v), err
}

// flag returns the next argument as a boolean spelled 0 or 1.
func (a *args) flag(name string) (bool, error) {
	v, err := a.integer(name, 0, 1)
	return v == 1, err
}

// number returns the next argument as a finite decimal number in [lo, hi].
func (a *args) number(name string, lo, hi float64) (float64, error) {
	tok, ok := a.next()
	if !ok {
		return 0, missing(name)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < lo || v > hi {
		return 0, invalid(name)
	}
	return v, nil
}

// parseInt parses an integer with C conventions: a 0x or 0X prefix
// selects base 16, a leading 0 base 8, base 10 otherwise.
// The whole token must be consumed.
func parseInt(tok string) (int64, error) {
	s := tok
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	base := 10
	switch {
	case len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X"):
		base, s = 16, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}

	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("parse %q: %w", tok, errSyntax)
	}

	v, err := strconv.ParseUint(s, base, 63)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", tok, err)
	}
	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}
