// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-lpc/rtc/am1815"
	"github.com/go-lpc/rtc/internal/config"
)

// Session is an interactive configuration session of an AM1815 device.
// It owns the command table, built once by NewSession.
type Session struct {
	dev    *am1815.Device
	editor LineReader
	out    io.Writer

	echo    bool
	profile config.ProfileConfig
	now     func() time.Time

	reg *Registry
}

// Option configures a Session.
type Option func(s *Session)

// WithOutput sets the writer commands report to. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithEcho sets whether a prompt is displayed before each line.
func WithEcho(echo bool) Option {
	return func(s *Session) {
		s.echo = echo
	}
}

// WithProfile sets the device profile run by the apply command.
func WithProfile(p config.ProfileConfig) Option {
	return func(s *Session) {
		s.profile = p
	}
}

// WithClock sets the host clock used by the time synchronization
// commands.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession returns a session driving dev with lines read from editor.
func NewSession(dev *am1815.Device, editor LineReader, opts ...Option) *Session {
	s := &Session{
		dev:    dev,
		editor: editor,
		out:    os.Stdout,
		echo:   true,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reg = NewRegistry(s.commands()...)
	return s
}

// Registry returns the command table of the session.
func (s *Session) Registry() *Registry { return s.reg }

// Dispatch runs a single command line.
func (s *Session) Dispatch(line string) (Result, error) {
	return s.reg.Dispatch(line)
}

// Echo reports whether the prompt is displayed.
func (s *Session) Echo() bool { return s.echo }

// Complete returns the command names starting with line.
func (s *Session) Complete(line string) []string {
	var names []string
	for _, cmd := range s.reg.Commands() {
		if strings.HasPrefix(cmd.Name, line) {
			names = append(names, cmd.Name)
		}
	}
	return names
}
