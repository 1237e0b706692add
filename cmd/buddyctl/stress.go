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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cloudwego/buddyalloc/buddy"
	"github.com/cloudwego/buddyalloc/internal/stress"
)

func newStressCmd(opts *globalOptions) *cobra.Command {
	var (
		workers    int
		ops        int
		maxSize    int
		checkEvery int
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent random allocate/free workload",
		Long: `Run random allocations and frees from several workers against one
shared allocator, checking its invariants periodically. When the workers are
done every block is freed and the arena must have merged back into a single
free block.`,
		Example: `  buddyctl stress --arena 1048576 --workers 8 --ops 100000
  buddyctl stress --json --no-progress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			flags := cmd.Flags()
			if flags.Changed("workers") {
				cfg.Stress.Workers = workers
			}
			if flags.Changed("ops") {
				cfg.Stress.Ops = ops
			}
			if flags.Changed("max-size") {
				cfg.Stress.MaxSize = maxSize
			}
			if flags.Changed("check-every") {
				cfg.Stress.CheckEvery = checkEvery
			}
			if err := cfg.Stress.Validate(); err != nil {
				return err
			}
			if cfg.Arena.TotalMemory == 0 {
				return errors.New("stress needs an arena, set --arena or arena.total-memory")
			}

			a, err := buddy.NewSync(cfg.Arena.TotalMemory, &buddy.Option{Logger: logger.Named("buddy")})
			if err != nil {
				return err
			}

			var onOp func()
			if !noProgress && !opts.jsonOut && term.IsTerminal(int(os.Stderr.Fd())) {
				bar := progressbar.Default(int64(cfg.Stress.Workers*cfg.Stress.Ops), "stress")
				defer func() { _ = bar.Finish() }()
				onOp = func() { _ = bar.Add(1) }
			}

			report, err := stress.Run(cmd.Context(), cfg.Stress, a, logger.Named("stress"), onOp)
			if opts.jsonOut {
				if werr := printReportJSON(cmd.OutOrStdout(), report); werr != nil {
					return werr
				}
			} else {
				printReport(cmd.OutOrStdout(), cfg.Arena.TotalMemory, report)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&workers, "workers", 0, "Number of concurrent workers")
	flags.IntVar(&ops, "ops", 0, "Operations per worker")
	flags.IntVar(&maxSize, "max-size", 0, "Largest request size")
	flags.IntVar(&checkEvery, "check-every", 0, "Check invariants every n operations of a worker, 0 disables")
	flags.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func printReport(w io.Writer, total int, r stress.Report) {
	fmt.Fprintf(w, "Arena:          %d\n", total)
	fmt.Fprintf(w, "Workers:        %d\n", r.Workers)
	fmt.Fprintf(w, "Allocations:    %d\n", r.Allocs)
	fmt.Fprintf(w, "Deallocations:  %d\n", r.Frees)
	fmt.Fprintf(w, "Out of memory:  %d\n", r.OutOfMemory)
	fmt.Fprintf(w, "Checks:         %d\n", r.Checks)
	fmt.Fprintf(w, "Elapsed:        %s\n", r.Elapsed)
}

func printReportJSON(w io.Writer, r stress.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
