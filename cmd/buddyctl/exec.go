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
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudwego/buddyalloc/internal/console"
)

func newExecCmd(opts *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "exec [command]...",
		Short: "Run shell commands non-interactively",
		Long: `Run shell commands given as arguments, or one per line from --file
("-" reads stdin). Execution stops at the first failing command and
buddyctl exits non-zero.`,
		Example: `  buddyctl exec "init 128" "alloc 32" "alloc 16" "free 0"
  buddyctl exec --arena 1024 --file script.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var script io.Reader
			switch {
			case file != "" && len(args) > 0:
				return errors.New("give commands as arguments or with --file, not both")
			case file == "-":
				script = cmd.InOrStdin()
			case file != "":
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				script = f
			case len(args) > 0:
				script = strings.NewReader(strings.Join(args, "\n"))
			default:
				return errors.New("no commands given")
			}

			cfg, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			session, err := newSession(cfg.Arena.TotalMemory, logger)
			if err != nil {
				return err
			}
			shellOpts := console.Options{Strict: true, JSON: opts.jsonOut, Render: opts.renderOptions()}
			return console.NewShell(session, cmd.OutOrStdout(), shellOpts, logger).Run(cmd.Context(), script)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read commands from a file, - for stdin")
	return cmd
}
