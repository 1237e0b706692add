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

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cloudwego/buddyalloc/internal/console"
)

const prompt = "buddy> "

func newReplCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive shell (default)",
		Long: `Start an interactive shell reading one command per line.
The arena from the config or --arena is initialized up front when non-zero.
Type help for the list of commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, opts)
		},
	}
}

func runRepl(cmd *cobra.Command, opts *globalOptions) error {
	cfg, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	session, err := newSession(cfg.Arena.TotalMemory, logger)
	if err != nil {
		return err
	}

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	shellOpts := console.Options{JSON: opts.jsonOut, Render: opts.renderOptions()}
	if isTerminal(in) {
		shellOpts.Prompt = prompt
		fmt.Fprintln(out, "Buddy System Memory Allocator. Type help for commands, quit to leave.")
		if session.Initialized() {
			fmt.Fprintf(out, "Arena of %d initialized.\n", cfg.Arena.TotalMemory)
		}
	}
	return console.NewShell(session, out, shellOpts, logger).Run(cmd.Context(), in)
}

// newSession creates a session, initialized when total is non-zero.
func newSession(total int, logger *zap.Logger) (*console.Session, error) {
	session := console.NewSession(logger)
	if total == 0 {
		return session, nil
	}
	if err := session.Init(strconv.Itoa(total)); err != nil {
		return nil, err
	}
	return session, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
