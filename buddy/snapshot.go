package buddy

import (
	"sort"

	"github.com/cloudwego/buddyalloc/container/ring"
)

// FreeBucket lists the free blocks of one size in the order they will be handed out.
type FreeBucket struct {
	Size  int   `json:"size"`
	Addrs []int `json:"addrs"`
}

// AllocatedBlock is one live allocation.
type AllocatedBlock struct {
	Addr int `json:"addr"`
	Size int `json:"size"`
}

// Snapshot is a copy of the allocator state for display.
// Free is ordered by ascending size and Allocated by ascending address.
type Snapshot struct {
	TotalMemory int              `json:"total_memory"`
	Free        []FreeBucket     `json:"free"`
	Allocated   []AllocatedBlock `json:"allocated"`
}

// Snapshot returns a deep copy of the free and allocated blocks.
func (a *Allocator) Snapshot() Snapshot {
	s := Snapshot{
		TotalMemory: a.totalMemory,
		Free:        []FreeBucket{},
		Allocated:   make([]AllocatedBlock, 0, len(a.allocated)),
	}
	a.free.ascend(func(size int, addrs *ring.Queue[int]) bool {
		s.Free = append(s.Free, FreeBucket{Size: size, Addrs: addrs.Values()})
		return true
	})
	for addr, size := range a.allocated {
		s.Allocated = append(s.Allocated, AllocatedBlock{Addr: addr, Size: size})
	}
	sort.Slice(s.Allocated, func(i, j int) bool {
		return s.Allocated[i].Addr < s.Allocated[j].Addr
	})
	return s
}

// FreeBlocks returns the number of free blocks.
func (s Snapshot) FreeBlocks() int {
	n := 0
	for _, b := range s.Free {
		n += len(b.Addrs)
	}
	return n
}

// FreeMap returns the free blocks as size -> addresses.
func (s Snapshot) FreeMap() map[int][]int {
	m := make(map[int][]int, len(s.Free))
	for _, b := range s.Free {
		m[b.Size] = b.Addrs
	}
	return m
}

// AllocatedMap returns the live allocations as address -> size.
func (s Snapshot) AllocatedMap() map[int]int {
	m := make(map[int]int, len(s.Allocated))
	for _, b := range s.Allocated {
		m[b.Addr] = b.Size
	}
	return m
}
