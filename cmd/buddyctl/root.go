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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloudwego/buddyalloc/internal/config"
	"github.com/cloudwego/buddyalloc/internal/logutil"
	"github.com/cloudwego/buddyalloc/internal/render"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	arena      int
	jsonOut    bool
	noColor    bool
}

func (o *globalOptions) renderOptions() render.Options {
	return render.Options{NoColor: o.noColor}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "buddyctl",
		Short: "Explore a binary buddy-system memory allocator",
		Long: `buddyctl drives a buddy-system allocator over an abstract power-of-two arena.
Allocate and free blocks interactively, replay scripted commands, or run a
concurrent stress workload, and inspect how blocks are split and merged.

Values are unitless: read them as bytes, KB, MB or GB.`,
		Version:       "0.1.0",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a TOML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.IntVar(&opts.arena, "arena", 0, "Arena size, overrides arena.total-memory")
	flags.BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newReplCmd(opts), newExecCmd(opts), newStressCmd(opts))
	return rootCmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, opts *globalOptions) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, nil, err
		}
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if cmd.Flags().Changed("arena") {
		cfg.Arena.TotalMemory = opts.arena
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := logutil.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
