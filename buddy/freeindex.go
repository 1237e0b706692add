package buddy

import (
	"github.com/google/btree"

	"github.com/cloudwego/buddyalloc/container/ring"
)

// btreeDegree is small since an arena of 2^n bytes has at most n+1 distinct block sizes.
const btreeDegree = 8

// bucket holds the free block offsets of one block size in FIFO order.
type bucket struct {
	size  int
	addrs *ring.Queue[int]
}

func (b *bucket) Less(than btree.Item) bool {
	return b.size < than.(*bucket).size
}

// freeIndex maps block size to the free block offsets of that size.
// Buckets are removed as soon as they become empty, so every bucket in
// the tree has at least one address.
type freeIndex struct {
	tree *btree.BTree
}

func newFreeIndex() *freeIndex {
	return &freeIndex{tree: btree.New(btreeDegree)}
}

func (fi *freeIndex) get(size int) *bucket {
	item := fi.tree.Get(&bucket{size: size})
	if item == nil {
		return nil
	}
	return item.(*bucket)
}

// push appends addr to the bucket of size, creating the bucket if absent.
func (fi *freeIndex) push(size, addr int) {
	b := fi.get(size)
	if b == nil {
		b = &bucket{size: size, addrs: ring.NewQueue[int](0)}
		fi.tree.ReplaceOrInsert(b)
	}
	b.addrs.PushBack(addr)
}

// popFit pops the first address of the smallest bucket whose size is >= size.
func (fi *freeIndex) popFit(size int) (blockSize, addr int, ok bool) {
	var found *bucket
	fi.tree.AscendGreaterOrEqual(&bucket{size: size}, func(i btree.Item) bool {
		b := i.(*bucket)
		if b.addrs.Len() == 0 {
			return true
		}
		found = b
		return false
	})
	if found == nil {
		return 0, 0, false
	}
	addr, _ = found.addrs.PopFront()
	if found.addrs.Len() == 0 {
		fi.tree.Delete(found)
	}
	return found.size, addr, true
}

// remove deletes addr from the bucket of size. It reports whether addr was there.
func (fi *freeIndex) remove(size, addr int) bool {
	b := fi.get(size)
	if b == nil || !b.addrs.Remove(addr) {
		return false
	}
	if b.addrs.Len() == 0 {
		fi.tree.Delete(b)
	}
	return true
}

// ascend calls f for every bucket in ascending size order until f returns false.
func (fi *freeIndex) ascend(f func(size int, addrs *ring.Queue[int]) bool) {
	fi.tree.Ascend(func(i btree.Item) bool {
		b := i.(*bucket)
		return f(b.size, b.addrs)
	})
}

func (fi *freeIndex) reset() {
	fi.tree.Clear(false)
}
