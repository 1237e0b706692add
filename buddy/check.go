package buddy

import (
	"fmt"
	"sort"

	"github.com/cloudwego/buddyalloc/container/ring"
)

type span struct {
	addr int
	size int
	free bool
}

// Check verifies the block bookkeeping. It returns an error wrapping
// ErrCorrupted if a block is not a power of two, is misaligned or out of the
// arena, if free and allocated blocks do not tile the arena exactly, or if
// two free blocks of the same size are unmerged buddies.
func (a *Allocator) Check() error {
	spans := make([]span, 0, len(a.allocated)+8)
	var err error
	a.free.ascend(func(size int, addrs *ring.Queue[int]) bool {
		addrs.Do(func(addr int) {
			spans = append(spans, span{addr: addr, size: size, free: true})
		})
		if size < a.totalMemory {
			addrs.Do(func(addr int) {
				if err == nil && addr&size == 0 && addrs.Index(addr^size) >= 0 {
					err = fmt.Errorf("%w: free buddies %d and %d of size %d not merged",
						ErrCorrupted, addr, addr^size, size)
				}
			})
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	for addr, size := range a.allocated {
		spans = append(spans, span{addr: addr, size: size})
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].addr < spans[j].addr
	})
	next := 0
	for _, s := range spans {
		if !IsPowerOfTwo(s.size) {
			return fmt.Errorf("%w: block %d has size %d which is not a power of two", ErrCorrupted, s.addr, s.size)
		}
		if s.addr&(s.size-1) != 0 {
			return fmt.Errorf("%w: block %d is not aligned to its size %d", ErrCorrupted, s.addr, s.size)
		}
		if s.addr < 0 || s.addr+s.size > a.totalMemory {
			return fmt.Errorf("%w: block [%d, %d) is outside the arena", ErrCorrupted, s.addr, s.addr+s.size)
		}
		switch {
		case s.addr < next:
			return fmt.Errorf("%w: block %d overlaps the block ending at %d", ErrCorrupted, s.addr, next)
		case s.addr > next:
			return fmt.Errorf("%w: gap [%d, %d) is neither free nor allocated", ErrCorrupted, next, s.addr)
		}
		next = s.addr + s.size
	}
	if next != a.totalMemory {
		return fmt.Errorf("%w: gap [%d, %d) is neither free nor allocated", ErrCorrupted, next, a.totalMemory)
	}
	return nil
}
