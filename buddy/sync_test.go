package buddy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSync(t *testing.T) {
	_, err := NewSync(100, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	s, err := NewSync(64, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, s.TotalMemory())
	assert.Equal(t, 64, s.Available())
}

func TestSyncAllocatorConcurrent(t *testing.T) {
	const (
		workers = 8
		rounds  = 500
	)
	s, err := NewSync(1<<22, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var mine []int
			for i := 0; i < rounds; i++ {
				addr, err := s.Allocate(1 + (i*7+w)%128)
				if err != nil {
					errs <- err
					return
				}
				mine = append(mine, addr)
				if i%3 == 2 {
					if err := s.Deallocate(mine[0]); err != nil {
						errs <- err
						return
					}
					mine = mine[1:]
				}
			}
			for _, addr := range mine {
				if err := s.Deallocate(addr); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, s.Check())
	assert.Equal(t, []FreeBucket{{1 << 22, []int{0}}}, s.Snapshot().Free)
}

func TestSyncAllocatorReset(t *testing.T) {
	s, err := NewSync(32, nil)
	require.NoError(t, err)
	addr, err := s.Allocate(32)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Available())

	s.Reset()
	assert.Equal(t, 32, s.Available())
	assert.ErrorIs(t, s.Deallocate(addr), ErrInvalidAddress)
}
