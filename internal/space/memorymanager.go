package space

import "sync"

// MemorySpaceManager is a DataSpaceManager backed by a single growing
// in-memory address counter, shared across every table's spaceID —
// real file-backed extent allocation is out of scope for this engine,
// the same way rowstore.MemoryRowStore stands in for a real on-disk
// row store. Freed extents are tracked per spaceID but never handed
// out again, matching the global manager's role as the allocator's
// upstream rather than a second free-list layer.
type MemorySpaceManager struct {
	mu      sync.Mutex
	nextPos int64
	freed   map[int][]Extent
}

// NewMemorySpaceManager returns a manager whose address space starts
// at startPos.
func NewMemorySpaceManager(startPos int64) *MemorySpaceManager {
	return &MemorySpaceManager{
		nextPos: startPos,
		freed:   make(map[int][]Extent),
	}
}

// GetFileBlocks satisfies DataSpaceManager, carving size bytes off the
// end of the shared address space.
func (m *MemorySpaceManager) GetFileBlocks(spaceID int, size int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.nextPos
	m.nextPos += size
	return pos, nil
}

// FreeTableSpace satisfies DataSpaceManager, recording extents as
// released for diagnostics (FreedExtents).
func (m *MemorySpaceManager) FreeTableSpace(spaceID int, extents []Extent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freed[spaceID] = append(m.freed[spaceID], extents...)
	return nil
}

// FreedExtents returns a copy of the extents released by spaceID so
// far, for tests and diagnostics.
func (m *MemorySpaceManager) FreedExtents(spaceID int) []Extent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Extent, len(m.freed[spaceID]))
	copy(out, m.freed[spaceID])
	return out
}
