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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/buddyalloc/buddy"
	"github.com/cloudwego/buddyalloc/internal/stress"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExecArgs(t *testing.T) {
	out, err := runCmd(t, "", "--no-color", "exec", "init 128", "alloc 32", "alloc 16", "free 0")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized arena of 128")
	assert.Contains(t, out, "Allocated 32 at address 0 (block size 32)")
	assert.Contains(t, out, "Allocated 16 at address 32 (block size 16)")
	assert.Contains(t, out, "Deallocated address 0")
	assert.Contains(t, out, "Start address: 32, Size: 16")
}

func TestExecStopsAtFirstError(t *testing.T) {
	out, err := runCmd(t, "", "--no-color", "exec", "alloc 256", "alloc 8")
	require.Error(t, err)
	assert.ErrorIs(t, err, buddy.ErrOutOfMemory)
	assert.Contains(t, out, "Error: Allocation failed: Not enough memory")
	assert.NotContains(t, out, "Allocated 8")
}

func TestExecUninitialized(t *testing.T) {
	out, err := runCmd(t, "", "--no-color", "--arena", "0", "exec", "alloc 8")
	require.Error(t, err)
	assert.Contains(t, out, "Error: Initialize Buddy System first")
}

func TestExecFile(t *testing.T) {
	script := writeFile(t, "script.txt", "# warm up\nalloc 64\n\nalloc 64\n")
	out, err := runCmd(t, "", "--no-color", "exec", "--file", script)
	require.NoError(t, err)
	assert.Contains(t, out, "Allocated 64 at address 0 (block size 64)")
	assert.Contains(t, out, "Allocated 64 at address 64 (block size 64)")
	assert.Contains(t, out, "No free blocks")
}

func TestExecStdin(t *testing.T) {
	out, err := runCmd(t, "alloc 1\n", "--no-color", "--arena", "16", "exec", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Allocated 1 at address 0 (block size 1)")
}

func TestExecBadUsage(t *testing.T) {
	_, err := runCmd(t, "", "exec")
	assert.EqualError(t, err, "no commands given")

	script := writeFile(t, "script.txt", "show\n")
	_, err = runCmd(t, "", "exec", "--file", script, "show")
	assert.Error(t, err)

	_, err = runCmd(t, "", "exec", "--file", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestExecJSON(t *testing.T) {
	out, err := runCmd(t, "", "--json", "exec", "show")
	require.NoError(t, err)

	var snap buddy.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 128, snap.TotalMemory)
	assert.Equal(t, []buddy.FreeBucket{{Size: 128, Addrs: []int{0}}}, snap.Free)
	assert.Empty(t, snap.Allocated)
}

func TestArenaFlagValidated(t *testing.T) {
	_, err := runCmd(t, "", "--arena", "100", "exec", "show")
	require.Error(t, err)
	assert.ErrorIs(t, err, buddy.ErrInvalidConfiguration)
}

func TestConfigFile(t *testing.T) {
	path := writeFile(t, "buddy.toml", "[arena]\ntotal-memory = 256\n")
	out, err := runCmd(t, "", "--no-color", "--config", path, "exec", "alloc 200")
	require.NoError(t, err)
	assert.Contains(t, out, "Allocated 200 at address 0 (block size 256)")

	// flags win over the file
	out, err = runCmd(t, "", "--no-color", "--config", path, "--arena", "1024", "exec", "alloc 512")
	require.NoError(t, err)
	assert.Contains(t, out, "Free Blocks")
	assert.Contains(t, out, "Size: 512, Block start address: 512")

	bad := writeFile(t, "bad.toml", "[arena]\ntotal = 256\n")
	_, err = runCmd(t, "", "--config", bad, "exec", "show")
	assert.ErrorContains(t, err, "unknown keys")
}

func TestReplDefault(t *testing.T) {
	out, err := runCmd(t, "alloc 8\nbogus\nfree 0\nquit\nalloc 8\n", "--no-color")
	require.NoError(t, err)
	assert.NotContains(t, out, prompt)
	assert.Contains(t, out, "Allocated 8 at address 0 (block size 8)")
	assert.Contains(t, out, `Error: unknown command "bogus"`)
	assert.Contains(t, out, "Deallocated address 0")
	assert.Equal(t, 1, strings.Count(out, "Allocated 8"))
}

func TestReplSubcommand(t *testing.T) {
	out, err := runCmd(t, "init 32\nalloc 3\n", "--no-color", "--arena", "0", "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized arena of 32")
	assert.Contains(t, out, "Allocated 3 at address 0 (block size 4)")
}

func TestStressJSON(t *testing.T) {
	out, err := runCmd(t, "", "--json", "--arena", "4096", "stress",
		"--workers", "2", "--ops", "300", "--max-size", "64", "--check-every", "50", "--no-progress")
	require.NoError(t, err)

	var report stress.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Workers)
	assert.GreaterOrEqual(t, report.Ops(), int64(600))
	assert.Equal(t, int64(12), report.Checks)
	assert.Equal(t, report.Allocs, report.Frees)
}

func TestStressText(t *testing.T) {
	out, err := runCmd(t, "", "--arena", "1024", "stress", "--workers", "1", "--ops", "10", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Arena:          1024")
	assert.Contains(t, out, "Workers:        1")
}

func TestStressNeedsArena(t *testing.T) {
	_, err := runCmd(t, "", "--arena", "0", "stress", "--no-progress")
	assert.ErrorContains(t, err, "stress needs an arena")

	_, err = runCmd(t, "", "stress", "--workers", "-1", "--no-progress")
	assert.ErrorContains(t, err, "stress.workers must be positive")
}
