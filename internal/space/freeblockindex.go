// Package space implements the per-table free-space allocator: an
// ordered free-extent index (FreeBlockIndex) and the slot allocator
// that sits on top of it (TableSpaceAllocator).
package space

import "sort"

// freeExtent is a released (pos, size) tuple held by a FreeBlockIndex.
type freeExtent struct {
	pos  int64
	size int64
}

// FreeBlockIndex is an ordered structure storing (position, size)
// pairs sorted by size, supporting first-fit lookup by minimum
// acceptable size. It is capacity-bounded; once full the caller must
// invoke ResetList to hand the accumulated free set back to the global
// space manager before adding more.
type FreeBlockIndex struct {
	entries  []freeExtent
	capacity int
}

// NewFreeBlockIndex returns an empty index bounded to capacity entries.
func NewFreeBlockIndex(capacity int) *FreeBlockIndex {
	return &FreeBlockIndex{capacity: capacity}
}

// Len returns the number of entries currently held.
func (f *FreeBlockIndex) Len() int { return len(f.entries) }

// Capacity returns the bound passed to NewFreeBlockIndex.
func (f *FreeBlockIndex) Capacity() int { return f.capacity }

// Full reports whether the index is at capacity.
func (f *FreeBlockIndex) Full() bool { return len(f.entries) >= f.capacity }

// Add inserts (pos, size) keeping entries sorted by size. The caller
// guarantees pos < 2^31; positions beyond that bound must be handled
// by allocating a fresh extent instead (TableSpaceAllocator.release
// enforces this before calling Add).
func (f *FreeBlockIndex) Add(pos, size int64) {
	i := sort.Search(len(f.entries), func(i int) bool { return f.entries[i].size >= size })
	f.entries = append(f.entries, freeExtent{})
	copy(f.entries[i+1:], f.entries[i:])
	f.entries[i] = freeExtent{pos: pos, size: size}
}

// FindFirstGreaterEqualKeyIndex returns the index of the first entry
// whose size is >= minSize, or -1 if none qualifies. Ties are broken
// arbitrarily — any entry of the minimal qualifying size may be
// returned.
func (f *FreeBlockIndex) FindFirstGreaterEqualKeyIndex(minSize int64) int {
	i := sort.Search(len(f.entries), func(i int) bool { return f.entries[i].size >= minSize })
	if i == len(f.entries) {
		return -1
	}
	return i
}

// GetKey returns the size at position i.
func (f *FreeBlockIndex) GetKey(i int) int64 { return f.entries[i].size }

// GetValue returns the file position at index i.
func (f *FreeBlockIndex) GetValue(i int) int64 { return f.entries[i].pos }

// Remove deletes the entry at index i.
func (f *FreeBlockIndex) Remove(i int) {
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
}

// ResetList drains the index and returns every extent it held, so the
// caller can hand them back to the global space manager and start
// fresh. The index is empty after this call.
func (f *FreeBlockIndex) ResetList() []Extent {
	out := make([]Extent, len(f.entries))
	for i, e := range f.entries {
		out[i] = Extent{Pos: e.pos, Size: e.size}
	}
	f.entries = nil
	return out
}

// Extent is a released (pos, size) tuple as seen outside this package,
// e.g. when flushing to the global DataSpaceManager.
type Extent struct {
	Pos  int64
	Size int64
}
