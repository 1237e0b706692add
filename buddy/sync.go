package buddy

import "sync"

// SyncAllocator is an Allocator guarded by a mutex. Every call holds the lock
// for its whole duration, so each operation stays atomic.
type SyncAllocator struct {
	mu sync.Mutex
	a  *Allocator
}

// NewSync creates a SyncAllocator. See NewWithOption.
func NewSync(totalMemory int, o *Option) (*SyncAllocator, error) {
	a, err := NewWithOption(totalMemory, o)
	if err != nil {
		return nil, err
	}
	return &SyncAllocator{a: a}, nil
}

// TotalMemory returns the arena size.
func (s *SyncAllocator) TotalMemory() int {
	return s.a.TotalMemory()
}

func (s *SyncAllocator) Allocate(size int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(size)
}

func (s *SyncAllocator) Deallocate(addr int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Deallocate(addr)
}

func (s *SyncAllocator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Snapshot()
}

func (s *SyncAllocator) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Available()
}

func (s *SyncAllocator) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Check()
}

func (s *SyncAllocator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}
