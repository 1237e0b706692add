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

// Package stress runs random allocate/deallocate workloads against a shared
// allocator and verifies it coalesces back into one block afterwards.
package stress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/bytedance/gopkg/util/gopool"
	"go.uber.org/zap"

	"github.com/cloudwego/buddyalloc/buddy"
	"github.com/cloudwego/buddyalloc/internal/config"
)

// Report summarizes a run.
type Report struct {
	Workers     int           `json:"workers"`
	Allocs      int64         `json:"allocs"`
	Frees       int64         `json:"frees"`
	OutOfMemory int64         `json:"out_of_memory"`
	Checks      int64         `json:"checks"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Ops returns the number of operations attempted.
func (r Report) Ops() int64 {
	return r.Allocs + r.Frees + r.OutOfMemory
}

type runner struct {
	cfg  config.StressConfig
	a    *buddy.SyncAllocator
	onOp func()

	allocs, frees, oom, checks atomic.Int64

	mu  sync.Mutex
	err error
}

func (r *runner) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func (r *runner) failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil
}

// Run starts cfg.Workers workers on a goroutine pool, each doing cfg.Ops random
// operations on a, and waits for them. onOp, if not nil, is called after every
// operation and must be safe for concurrent use.
//
// Every worker frees what it still holds before it exits, so a healthy
// allocator ends as a single free block. Run returns an error if an operation
// fails unexpectedly, a check fails, a worker panics, or the arena does not
// coalesce. A canceled ctx stops the workers early and is returned as the error.
func Run(ctx context.Context, cfg config.StressConfig, a *buddy.SyncAllocator, logger *zap.Logger, onOp func()) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &runner{cfg: cfg, a: a, onOp: onOp}

	var wg sync.WaitGroup
	pool := gopool.NewPool("buddy-stress", int32(cfg.Workers), gopool.NewConfig())

	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		pool.CtxGo(ctx, func() {
			defer wg.Done()
			// runs before wg.Done so Wait sees the failure
			defer func() {
				if p := recover(); p != nil {
					r.fail(fmt.Errorf("stress worker panic: %v", p))
				}
			}()
			r.work(ctx)
		})
	}
	wg.Wait()

	report := Report{
		Workers:     cfg.Workers,
		Allocs:      r.allocs.Load(),
		Frees:       r.frees.Load(),
		OutOfMemory: r.oom.Load(),
		Checks:      r.checks.Load(),
		Elapsed:     time.Since(start),
	}
	logger.Info("stress finished",
		zap.Int("workers", report.Workers),
		zap.Int64("allocs", report.Allocs),
		zap.Int64("frees", report.Frees),
		zap.Int64("out_of_memory", report.OutOfMemory),
		zap.Int64("checks", report.Checks),
		zap.Duration("elapsed", report.Elapsed))

	if r.err != nil {
		return report, r.err
	}
	if err := verifyCoalesced(a); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func (r *runner) work(ctx context.Context) {
	var live []int
	defer func() {
		for _, addr := range live {
			if err := r.a.Deallocate(addr); err != nil {
				r.fail(fmt.Errorf("release %d: %w", addr, err))
				return
			}
			r.frees.Add(1)
		}
	}()

	for i := 0; i < r.cfg.Ops; i++ {
		if ctx.Err() != nil || r.failed() {
			return
		}
		if len(live) == 0 || fastrand.Intn(3) != 0 {
			size := 1 + fastrand.Intn(r.cfg.MaxSize)
			addr, err := r.a.Allocate(size)
			switch {
			case errors.Is(err, buddy.ErrOutOfMemory):
				r.oom.Add(1)
			case err != nil:
				r.fail(fmt.Errorf("allocate %d: %w", size, err))
				return
			default:
				live = append(live, addr)
				r.allocs.Add(1)
			}
		} else {
			idx := fastrand.Intn(len(live))
			if err := r.a.Deallocate(live[idx]); err != nil {
				r.fail(fmt.Errorf("deallocate %d: %w", live[idx], err))
				return
			}
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			r.frees.Add(1)
		}

		if r.cfg.CheckEvery > 0 && (i+1)%r.cfg.CheckEvery == 0 {
			if err := r.a.Check(); err != nil {
				r.fail(err)
				return
			}
			r.checks.Add(1)
		}
		if r.onOp != nil {
			r.onOp()
		}
	}
}

// verifyCoalesced checks the invariants and that the whole arena is one free block.
func verifyCoalesced(a *buddy.SyncAllocator) error {
	if err := a.Check(); err != nil {
		return err
	}
	s := a.Snapshot()
	if len(s.Allocated) != 0 || len(s.Free) != 1 || s.Free[0].Size != s.TotalMemory || len(s.Free[0].Addrs) != 1 {
		return fmt.Errorf("%w: arena did not coalesce: %d allocated blocks, %d free blocks",
			buddy.ErrCorrupted, len(s.Allocated), s.FreeBlocks())
	}
	return nil
}
