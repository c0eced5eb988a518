// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Run reads and dispatches command lines until the exit command, the end
// of the input or the cancellation of ctx.
// A transport failure aborts the session and is returned.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(s.out, "Exiting....\n")
			return nil
		default:
		}

		prompt := ""
		if s.echo {
			prompt = "> "
		}

		line, err := s.editor.ReadLine(prompt)
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintf(s.out, "Exiting....\n")
			return nil
		case err != nil:
			return fmt.Errorf("cli: could not read command line: %w", err)
		}

		res, err := s.Dispatch(line)
		if err != nil {
			return fmt.Errorf("cli: could not run %q: %w", line, err)
		}

		switch res.Status {
		case ExitRequested:
			fmt.Fprintf(s.out, "Exiting....\n")
			return nil
		case ValidationError:
			if res.Msg != "" {
				fmt.Fprintf(s.out, "Error: %s\n", res.Msg)
			}
			fmt.Fprintf(s.out, "Invalid command\n")
		}
	}
}
