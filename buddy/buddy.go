// Package buddy implements the bookkeeping of a binary buddy allocator.
//
// An Allocator manages an abstract arena of a power-of-two size. It never
// touches real memory: it only tracks which power-of-two blocks of the arena
// are free and which are allocated, splitting larger blocks on Allocate and
// merging buddies back together on Deallocate.
//
// An Allocator is not safe for concurrent use. Wrap it with SyncAllocator
// when more than one goroutine needs it.
package buddy

import (
	"fmt"
	"math/bits"

	"go.uber.org/zap"

	"github.com/cloudwego/buddyalloc/container/ring"
)

// Option configures an Allocator.
type Option struct {
	// Logger receives debug traces of splits and merges. nil disables tracing.
	Logger *zap.Logger
}

// Allocator is a buddy system allocator over [0, totalMemory).
type Allocator struct {
	// totalMemory is the arena size, fixed for the allocator's lifetime.
	totalMemory int

	// free holds free block offsets keyed by block size.
	free *freeIndex

	// allocated maps the offset of every live allocation to its reserved block size.
	allocated map[int]int

	logger *zap.Logger
}

// New creates an allocator over an arena of totalMemory units.
// totalMemory must be a positive power of two.
func New(totalMemory int) (*Allocator, error) {
	return NewWithOption(totalMemory, nil)
}

// NewWithOption creates an allocator with the given Option. A nil Option uses defaults.
func NewWithOption(totalMemory int, o *Option) (*Allocator, error) {
	if !IsPowerOfTwo(totalMemory) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidConfiguration, totalMemory)
	}
	logger := zap.NewNop()
	if o != nil && o.Logger != nil {
		logger = o.Logger
	}
	a := &Allocator{
		totalMemory: totalMemory,
		free:        newFreeIndex(),
		allocated:   make(map[int]int),
		logger:      logger,
	}
	a.free.push(totalMemory, 0)
	return a, nil
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// RoundUpToPowerOfTwo returns the smallest power of two >= size.
// It returns 1 for size <= 0.
func RoundUpToPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// TotalMemory returns the arena size.
func (a *Allocator) TotalMemory() int {
	return a.totalMemory
}

// Allocate reserves a block of at least size units and returns its offset.
// The reserved block size is size rounded up to a power of two.
//
// It returns ErrInvalidRequestSize for size <= 0 and ErrOutOfMemory when no
// free block is large enough. The allocator is unchanged on error.
func (a *Allocator) Allocate(size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRequestSize, size)
	}
	if size > a.totalMemory {
		return 0, fmt.Errorf("%w: requested %d of %d", ErrOutOfMemory, size, a.totalMemory)
	}
	blockSize := RoundUpToPowerOfTwo(size)

	foundSize, addr, ok := a.free.popFit(blockSize)
	if !ok {
		return 0, fmt.Errorf("%w: no free block of size >= %d", ErrOutOfMemory, blockSize)
	}

	// Split until we reach the required size.
	// The lower half keeps the offset, the upper half becomes a free block
	// one size down.
	for foundSize > blockSize {
		foundSize >>= 1
		a.free.push(foundSize, addr+foundSize)
		a.logger.Debug("split block",
			zap.Int("addr", addr), zap.Int("buddy", addr+foundSize), zap.Int("size", foundSize))
	}

	a.allocated[addr] = blockSize
	return addr, nil
}

// Deallocate returns the block at addr to the allocator, merging it with its
// free buddies. It returns ErrInvalidAddress if addr is not a live allocation.
func (a *Allocator) Deallocate(addr int) error {
	blockSize, ok := a.allocated[addr]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidAddress, addr)
	}
	delete(a.allocated, addr)
	a.merge(addr, blockSize)
	return nil
}

// merge inserts the free block (addr, blockSize), coalescing it with its buddy
// as long as the buddy is free.
func (a *Allocator) merge(addr, blockSize int) {
	for blockSize < a.totalMemory {
		buddy := addr ^ blockSize
		if !a.free.remove(blockSize, buddy) {
			break
		}
		a.logger.Debug("merge buddies",
			zap.Int("addr", addr), zap.Int("buddy", buddy), zap.Int("size", blockSize))
		// addr &^ blockSize is the lower of the pair, aligned to the doubled size.
		addr &^= blockSize
		blockSize <<= 1
	}
	a.free.push(blockSize, addr)
}

// BlockSize returns the reserved block size of the allocation at addr.
func (a *Allocator) BlockSize(addr int) (int, bool) {
	size, ok := a.allocated[addr]
	return size, ok
}

// Available returns the total size of all free blocks.
func (a *Allocator) Available() int {
	total := 0
	a.free.ascend(func(size int, addrs *ring.Queue[int]) bool {
		total += size * addrs.Len()
		return true
	})
	return total
}

// Reset drops all allocations and returns the allocator to its initial state.
func (a *Allocator) Reset() {
	a.free.reset()
	a.free.push(a.totalMemory, 0)
	a.allocated = make(map[int]int)
}
