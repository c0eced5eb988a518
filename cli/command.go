// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cli implements the line-oriented command interface of the RTC
// configuration tool.
package cli // import "github.com/go-lpc/rtc/cli"

import (
	"strings"
)

// Handler runs a command.
//
// Handle receives the whole command line, command name included.
// Invalid arguments are reported as a ValidationError result; the error
// return is reserved for transport faults.
type Handler interface {
	Handle(line string) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(line string) (Result, error)

func (f HandlerFunc) Handle(line string) (Result, error) { return f(line) }

// Command binds a handler to a command name.
type Command struct {
	Name    string
	Help    string
	Handler Handler
}

// Registry is an immutable table of commands.
type Registry struct {
	cmds []Command
	idx  map[string]int
}

// NewRegistry returns a registry holding cmds, in declaration order.
// When several commands share a name, the first one wins.
func NewRegistry(cmds ...Command) *Registry {
	reg := &Registry{
		cmds: make([]Command, len(cmds)),
		idx:  make(map[string]int, len(cmds)),
	}
	copy(reg.cmds, cmds)
	for i, cmd := range reg.cmds {
		if _, dup := reg.idx[cmd.Name]; dup {
			continue
		}
		reg.idx[cmd.Name] = i
	}
	return reg
}

// Lookup returns the command named name.
func (reg *Registry) Lookup(name string) (Command, bool) {
	i, ok := reg.idx[name]
	if !ok {
		return Command{}, false
	}
	return reg.cmds[i], true
}

// Commands returns the commands in declaration order.
func (reg *Registry) Commands() []Command {
	return append([]Command(nil), reg.cmds...)
}

// Dispatch runs the command selected by the first token of line.
//
// An empty line is a no-op. An unknown command is a validation error.
func (reg *Registry) Dispatch(line string) (Result, error) {
	toks := Tokenize(line)
	if len(toks) == 0 {
		return OK(), nil
	}

	cmd, ok := reg.Lookup(toks[0])
	if !ok {
		return Invalid("unknown command %q", toks[0]), nil
	}
	if cmd.Handler == nil {
		return OK(), nil
	}
	return cmd.Handler.Handle(line)
}

// Tokenize splits line on spaces, tabs, carriage returns and new lines.
func Tokenize(line string) []string {
	return strings.FieldsFunc(line, isSep)
}

func isSep(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}
