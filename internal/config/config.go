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

// Package config loads the buddyctl TOML configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cloudwego/buddyalloc/buddy"
	"github.com/cloudwego/buddyalloc/internal/logutil"
)

// ArenaConfig is the [arena] section.
type ArenaConfig struct {
	// TotalMemory is the arena the shell starts with. 0 starts uninitialized.
	TotalMemory int `toml:"total-memory"`
}

// StressConfig is the [stress] section.
type StressConfig struct {
	Workers int `toml:"workers"`
	// Ops is the number of operations per worker.
	Ops int `toml:"ops"`
	// MaxSize is the largest request size.
	MaxSize int `toml:"max-size"`
	// CheckEvery runs an invariant check every n operations of a worker. 0 disables it.
	CheckEvery int `toml:"check-every"`
}

// Config is the whole buddyctl configuration.
type Config struct {
	Arena  ArenaConfig       `toml:"arena"`
	Log    logutil.LogConfig `toml:"log"`
	Stress StressConfig      `toml:"stress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Arena: ArenaConfig{TotalMemory: 128},
		Log:   logutil.DefaultLogConfig(),
		Stress: StressConfig{
			Workers:    4,
			Ops:        10000,
			MaxSize:    64,
			CheckEvery: 500,
		},
	}
}

// Load reads the TOML file at path on top of Default and validates the result.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section and joins the problems found.
func (c *Config) Validate() error {
	var errs []error
	if c.Arena.TotalMemory != 0 && !buddy.IsPowerOfTwo(c.Arena.TotalMemory) {
		errs = append(errs, fmt.Errorf("arena.total-memory: %w, got %d",
			buddy.ErrInvalidConfiguration, c.Arena.TotalMemory))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if err := c.Stress.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the stress settings.
func (s *StressConfig) Validate() error {
	var errs []error
	if s.Workers <= 0 {
		errs = append(errs, fmt.Errorf("stress.workers must be positive, got %d", s.Workers))
	}
	if s.Ops <= 0 {
		errs = append(errs, fmt.Errorf("stress.ops must be positive, got %d", s.Ops))
	}
	if s.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("stress.max-size must be positive, got %d", s.MaxSize))
	}
	if s.CheckEvery < 0 {
		errs = append(errs, fmt.Errorf("stress.check-every must not be negative, got %d", s.CheckEvery))
	}
	return errors.Join(errs...)
}
