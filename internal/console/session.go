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

// Package console is the interactive front-end over a buddy.Allocator.
// It parses user input, calls the allocator and turns failures into the
// messages shown to the user.
package console

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cloudwego/buddyalloc/buddy"
)

// User-facing messages.
const (
	MsgNotInitialized     = "Initialize Buddy System first"
	MsgInvalidTotal       = "Total memory must be a positive power of 2"
	MsgInvalidSize        = "Invalid allocation size"
	MsgOutOfMemory        = "Allocation failed: Not enough memory"
	MsgInvalidDeallocAddr = "Invalid deallocation address"
	MsgDeallocFailed      = "Deallocation failed: Invalid address"
)

// ErrNotInitialized is wrapped by the error returned for operations before Init.
var ErrNotInitialized = errors.New("console: allocator not initialized")

// Error is a failed user request. Msg is what the user sees; Err is the cause.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(msg string, err error) *Error {
	return &Error{Msg: msg, Err: err}
}

// Session holds the allocator the user is working with. It is nil until Init.
type Session struct {
	a      *buddy.Allocator
	logger *zap.Logger
}

// NewSession creates an uninitialized session. A nil logger disables logging.
func NewSession(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{logger: logger}
}

// Initialized reports whether Init has succeeded.
func (s *Session) Initialized() bool {
	return s.a != nil
}

// Init replaces the allocator with a fresh one over an arena of arg units.
// On failure the previous allocator is kept.
func (s *Session) Init(arg string) error {
	total, err := parseInt(arg)
	if err != nil {
		return newError(MsgInvalidTotal, err)
	}
	a, err := buddy.NewWithOption(total, &buddy.Option{Logger: s.logger.Named("buddy")})
	if err != nil {
		return newError(MsgInvalidTotal, err)
	}
	s.a = a
	s.logger.Info("initialized", zap.Int("total_memory", total))
	return nil
}

// Allocate reserves arg units and returns the block address and reserved size.
func (s *Session) Allocate(arg string) (addr, blockSize int, err error) {
	if s.a == nil {
		return 0, 0, newError(MsgNotInitialized, ErrNotInitialized)
	}
	size, err := parseInt(arg)
	if err != nil {
		return 0, 0, newError(MsgInvalidSize, err)
	}
	addr, err = s.a.Allocate(size)
	switch {
	case errors.Is(err, buddy.ErrInvalidRequestSize):
		return 0, 0, newError(MsgInvalidSize, err)
	case errors.Is(err, buddy.ErrOutOfMemory):
		s.logger.Info("allocation failed", zap.Int("size", size), zap.Error(err))
		return 0, 0, newError(MsgOutOfMemory, err)
	case err != nil:
		return 0, 0, err
	}
	blockSize, _ = s.a.BlockSize(addr)
	s.logger.Info("allocated", zap.Int("size", size), zap.Int("addr", addr), zap.Int("block_size", blockSize))
	return addr, blockSize, nil
}

// Deallocate frees the block at the address in arg.
func (s *Session) Deallocate(arg string) error {
	if s.a == nil {
		return newError(MsgNotInitialized, ErrNotInitialized)
	}
	addr, err := parseInt(arg)
	if err != nil {
		return newError(MsgInvalidDeallocAddr, err)
	}
	if addr < 0 {
		return newError(MsgInvalidDeallocAddr, buddy.ErrInvalidAddress)
	}
	if err := s.a.Deallocate(addr); err != nil {
		s.logger.Info("deallocation failed", zap.Int("addr", addr), zap.Error(err))
		return newError(MsgDeallocFailed, err)
	}
	s.logger.Info("deallocated", zap.Int("addr", addr))
	return nil
}

// Reset frees every block of the current allocator.
func (s *Session) Reset() error {
	if s.a == nil {
		return newError(MsgNotInitialized, ErrNotInitialized)
	}
	s.a.Reset()
	s.logger.Info("reset", zap.Int("total_memory", s.a.TotalMemory()))
	return nil
}

// Check runs the allocator's invariant check.
func (s *Session) Check() error {
	if s.a == nil {
		return newError(MsgNotInitialized, ErrNotInitialized)
	}
	if err := s.a.Check(); err != nil {
		s.logger.Error("invariant check failed", zap.Error(err))
		return newError(err.Error(), err)
	}
	return nil
}

// Snapshot returns the current allocator state.
func (s *Session) Snapshot() (buddy.Snapshot, error) {
	if s.a == nil {
		return buddy.Snapshot{}, newError(MsgNotInitialized, ErrNotInitialized)
	}
	return s.a.Snapshot(), nil
}

func parseInt(arg string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(arg))
}
