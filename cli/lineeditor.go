// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// LineReader reads command lines from an operator.
type LineReader interface {
	// ReadLine displays prompt and returns the next line.
	// It returns io.EOF when the input is exhausted.
	ReadLine(prompt string) (string, error)

	// History returns the lines read so far, oldest first.
	History() []string
}

// LineEditor is a LineReader over the process standard input.
//
// When stdin is a terminal, lines are read with liner (line editing,
// history, command completion). Otherwise lines are scanned from stdin.
type LineEditor struct {
	ln *liner.State

	scan *bufio.Scanner
	out  io.Writer
	hist []string

	fname string // history file
	size  int    // max number of history entries saved
}

// NewLineEditor returns a line editor loading and saving its history from
// fname (no history file if empty), keeping at most size entries.
// complete, if not nil, returns the completion candidates of a line.
func NewLineEditor(fname string, size int, complete func(line string) []string) *LineEditor {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return newScanEditor(os.Stdin, os.Stdout)
	}

	le := &LineEditor{
		fname: fname,
		size:  size,
	}
	le.ln = liner.NewLiner()
	le.ln.SetCtrlCAborts(true)
	if complete != nil {
		le.ln.SetCompleter(complete)
	}

	if fname != "" {
		f, err := os.Open(fname)
		if err == nil {
			_, _ = le.ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	return le
}

// newScanEditor returns a line editor scanning lines from r and printing
// prompts to w. Its history is not saved.
func newScanEditor(r io.Reader, w io.Writer) *LineEditor {
	return &LineEditor{
		scan: bufio.NewScanner(r),
		out:  w,
	}
}

func (le *LineEditor) ReadLine(prompt string) (string, error) {
	line, err := le.readLine(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		le.append(line)
	}
	return line, nil
}

func (le *LineEditor) readLine(prompt string) (string, error) {
	if le.ln == nil {
		fmt.Fprint(le.out, prompt)
		if !le.scan.Scan() {
			if err := le.scan.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return le.scan.Text(), nil
	}

	line, err := le.ln.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return line, err
}

func (le *LineEditor) append(line string) {
	if le.ln != nil {
		le.ln.AppendHistory(line)
		return
	}
	le.hist = append(le.hist, line)
}

func (le *LineEditor) History() []string {
	if le.ln == nil {
		return append([]string(nil), le.hist...)
	}

	buf := new(bytes.Buffer)
	_, err := le.ln.WriteHistory(buf)
	if err != nil {
		return nil
	}
	return strings.FieldsFunc(buf.String(), func(r rune) bool { return r == '\n' })
}

// Close saves the history and restores the terminal.
func (le *LineEditor) Close() error {
	if le.ln == nil {
		return nil
	}
	defer le.ln.Close()

	if le.fname == "" {
		return nil
	}

	hist := le.History()
	if le.size > 0 && len(hist) > le.size {
		hist = hist[len(hist)-le.size:]
	}

	f, err := os.Create(le.fname)
	if err != nil {
		return fmt.Errorf("cli: could not create history file: %w", err)
	}
	defer f.Close()

	for _, line := range hist {
		_, err = fmt.Fprintln(f, line)
		if err != nil {
			return fmt.Errorf("cli: could not save history: %w", err)
		}
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("cli: could not close history file: %w", err)
	}
	return nil
}

var (
	_ LineReader = (*LineEditor)(nil)
)
