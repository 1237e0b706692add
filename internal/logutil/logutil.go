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

// Package logutil builds the zap loggers used by buddyctl.
package logutil

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// LogConfig is the [log] section of the config file.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Format is console or json.
	Format string `toml:"format"`
	// Filename is the log file. Logs go to stderr when it is empty.
	Filename string `toml:"filename"`
	// MaxSize is the size in megabytes of a log file before it is rotated.
	MaxSize int `toml:"max-size"`
	// MaxDays is how many days rotated files are kept.
	MaxDays int `toml:"max-days"`
	// MaxBackups is how many rotated files are kept.
	MaxBackups int `toml:"max-backups"`
}

// DefaultLogConfig logs warnings and above to stderr.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "warn",
		Format:     FormatConsole,
		MaxSize:    64,
		MaxDays:    7,
		MaxBackups: 3,
	}
}

// Validate checks level and format without building a logger.
func (cfg *LogConfig) Validate() error {
	if _, err := cfg.getLevel(); err != nil {
		return err
	}
	_, err := cfg.getEncoder()
	return err
}

// NewLogger builds a logger from cfg.
func NewLogger(cfg *LogConfig) (*zap.Logger, error) {
	level, err := cfg.getLevel()
	if err != nil {
		return nil, err
	}
	encoder, err := cfg.getEncoder()
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(encoder, cfg.getSyncer(), level)
	return zap.New(core, cfg.getOptions()...), nil
}

func (cfg *LogConfig) getLevel() (zap.AtomicLevel, error) {
	if cfg.Level == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	}
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return level, fmt.Errorf("unsupported log level: %s", cfg.Level)
	}
	return level, nil
}

func (cfg *LogConfig) getEncoder() (zapcore.Encoder, error) {
	return getLoggerEncoder(cfg.Format)
}

func (cfg *LogConfig) getSyncer() zapcore.WriteSyncer {
	if cfg.Filename == "" {
		return getConsoleSyncer()
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxDays,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	})
}

func (cfg *LogConfig) getOptions() []zap.Option {
	return []zap.Option{zap.AddStacktrace(zapcore.FatalLevel), zap.AddCaller()}
}

func getConsoleSyncer() zapcore.WriteSyncer {
	return zapcore.Lock(os.Stderr)
}

func getLoggerEncoder(format string) (zapcore.Encoder, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	switch format {
	case FormatConsole, "":
		return zapcore.NewConsoleEncoder(encoderConfig), nil
	case FormatJSON:
		return zapcore.NewJSONEncoder(encoderConfig), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}
