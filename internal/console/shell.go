/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/cloudwego/buddyalloc/internal/render"
)

const helpText = `Commands:
  init <total>     create an allocator over a power-of-two arena
  alloc <size>     allocate a block of at least size units
  free <addr>      free the block at addr
  show             print free and allocated blocks
  check            verify the allocator invariants
  reset            free every block
  help             print this help
  quit             leave the shell
`

// Options configures a Shell.
type Options struct {
	// Prompt is printed before each line is read. Empty prints nothing.
	Prompt string
	// Strict makes Run stop at the first failed command and return its error.
	Strict bool
	// JSON prints state as JSON instead of tables.
	JSON bool

	Render render.Options
}

// Shell reads commands line by line and runs them against a Session.
type Shell struct {
	s      *Session
	out    io.Writer
	opts   Options
	logger *zap.Logger
}

// NewShell creates a shell writing to out. A nil logger disables logging.
func NewShell(s *Session, out io.Writer, opts Options, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{s: s, out: out, opts: opts, logger: logger}
}

// Run executes the commands read from r until EOF, quit, or ctx is done.
// Failed commands are reported to the output; in strict mode the first one
// is also returned.
func (sh *Shell) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sh.opts.Prompt != "" {
			fmt.Fprint(sh.out, sh.opts.Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		quit, err := sh.Exec(scanner.Text())
		if err != nil {
			if werr := render.Error(sh.out, err.Error(), sh.opts.Render); werr != nil {
				return werr
			}
			if sh.opts.Strict {
				return err
			}
		}
		if quit {
			return nil
		}
	}
}

// Exec runs a single command line. It reports whether the line asked to quit.
func (sh *Shell) Exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	sh.logger.Debug("command", zap.String("cmd", cmd), zap.Strings("args", args))

	switch cmd {
	case "init", "initialize":
		if err := needArg(cmd, "<total>", args); err != nil {
			return false, err
		}
		if err := sh.s.Init(args[0]); err != nil {
			return false, err
		}
		fmt.Fprintf(sh.out, "Initialized arena of %s\n", args[0])
		return false, sh.show()
	case "alloc", "allocate":
		if err := needArg(cmd, "<size>", args); err != nil {
			return false, err
		}
		addr, blockSize, err := sh.s.Allocate(args[0])
		if err != nil {
			return false, err
		}
		fmt.Fprintf(sh.out, "Allocated %s at address %d (block size %d)\n", args[0], addr, blockSize)
		return false, sh.show()
	case "free", "dealloc", "deallocate":
		if err := needArg(cmd, "<addr>", args); err != nil {
			return false, err
		}
		if err := sh.s.Deallocate(args[0]); err != nil {
			return false, err
		}
		fmt.Fprintf(sh.out, "Deallocated address %s\n", args[0])
		return false, sh.show()
	case "show", "state":
		return false, sh.show()
	case "check":
		if err := sh.s.Check(); err != nil {
			return false, err
		}
		fmt.Fprintln(sh.out, "OK: invariants hold")
		return false, nil
	case "reset":
		if err := sh.s.Reset(); err != nil {
			return false, err
		}
		return false, sh.show()
	case "help", "?":
		fmt.Fprint(sh.out, helpText)
		return false, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, newError(fmt.Sprintf("unknown command %q, type help for the list", cmd), nil)
	}
}

func (sh *Shell) show() error {
	snap, err := sh.s.Snapshot()
	if err != nil {
		return err
	}
	if sh.opts.JSON {
		return render.JSON(sh.out, snap)
	}
	return render.Text(sh.out, snap, sh.opts.Render)
}

func needArg(cmd, name string, args []string) error {
	if len(args) != 1 {
		return newError(fmt.Sprintf("usage: %s %s", cmd, name), nil)
	}
	return nil
}
