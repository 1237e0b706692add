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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/buddyalloc/buddy"
)

func assertUserError(t *testing.T, err error, msg string) {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "got %v", err)
	assert.Equal(t, msg, e.Msg)
}

func TestSessionNotInitialized(t *testing.T) {
	s := NewSession(nil)
	assert.False(t, s.Initialized())

	_, _, err := s.Allocate("8")
	assertUserError(t, err, MsgNotInitialized)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assertUserError(t, s.Deallocate("0"), MsgNotInitialized)
	assertUserError(t, s.Reset(), MsgNotInitialized)
	assertUserError(t, s.Check(), MsgNotInitialized)
	_, err = s.Snapshot()
	assertUserError(t, err, MsgNotInitialized)
}

func TestSessionInit(t *testing.T) {
	s := NewSession(nil)
	for _, arg := range []string{"", "abc", "0", "-8", "100", "12.5"} {
		err := s.Init(arg)
		assertUserError(t, err, MsgInvalidTotal)
		assert.False(t, s.Initialized(), "arg=%q", arg)
	}
	assert.ErrorIs(t, s.Init("100"), buddy.ErrInvalidConfiguration)

	require.NoError(t, s.Init(" 128 "))
	assert.True(t, s.Initialized())

	// a failed re-init keeps the current allocator
	_, _, err := s.Allocate("32")
	require.NoError(t, err)
	assertUserError(t, s.Init("3"), MsgInvalidTotal)
	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Allocated, 1)

	// a successful re-init starts over
	require.NoError(t, s.Init("64"))
	snap, err = s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 64, snap.TotalMemory)
	assert.Empty(t, snap.Allocated)
}

func TestSessionAllocate(t *testing.T) {
	s := NewSession(nil)
	require.NoError(t, s.Init("128"))

	addr, blockSize, err := s.Allocate("20")
	require.NoError(t, err)
	assert.Equal(t, 0, addr)
	assert.Equal(t, 32, blockSize)

	for _, arg := range []string{"", "x", "0", "-4"} {
		_, _, err := s.Allocate(arg)
		assertUserError(t, err, MsgInvalidSize)
	}

	_, _, err = s.Allocate("128")
	assertUserError(t, err, MsgOutOfMemory)
	assert.ErrorIs(t, err, buddy.ErrOutOfMemory)
}

func TestSessionDeallocate(t *testing.T) {
	s := NewSession(nil)
	require.NoError(t, s.Init("16"))
	addr, _, err := s.Allocate("16")
	require.NoError(t, err)
	assert.Equal(t, 0, addr)

	assertUserError(t, s.Deallocate("nope"), MsgInvalidDeallocAddr)
	assertUserError(t, s.Deallocate("-1"), MsgInvalidDeallocAddr)

	err = s.Deallocate("999")
	assertUserError(t, err, MsgDeallocFailed)
	assert.ErrorIs(t, err, buddy.ErrInvalidAddress)

	require.NoError(t, s.Deallocate("0"))
	assertUserError(t, s.Deallocate("0"), MsgDeallocFailed)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []buddy.FreeBucket{{Size: 16, Addrs: []int{0}}}, snap.Free)
	assert.Empty(t, snap.Allocated)
}

func TestSessionResetAndCheck(t *testing.T) {
	s := NewSession(nil)
	require.NoError(t, s.Init("64"))
	_, _, err := s.Allocate("5")
	require.NoError(t, err)
	require.NoError(t, s.Check())

	require.NoError(t, s.Reset())
	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []buddy.FreeBucket{{Size: 64, Addrs: []int{0}}}, snap.Free)
	require.NoError(t, s.Check())
}
