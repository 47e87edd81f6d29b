package space

import (
	"math"

	"github.com/cloudfs/dbengine/internal/dbengine/logging"
	"github.com/cloudfs/dbengine/internal/dberrors"
)

// maxUnscaledPosition is 2^31 - 1: requests whose size exceeds this
// bound skip the size-ordered free list and come straight out of the
// current extent.
const maxUnscaledPosition = math.MaxInt32

// droppedPositionBound is 2^31: released positions at or beyond this
// bound are dropped by release() rather than tracked, since they
// become the global manager's responsibility on close.
const droppedPositionBound = 1 << 31

// TableSpaceAllocator is the per-table slot allocator. It carves a
// current "fresh" extent via linear bump allocation, falls back to a
// capacity-bounded FreeBlockIndex of released extents, and requests
// new extents from the global DataSpaceManager on exhaustion.
type TableSpaceAllocator struct {
	spaceID int

	freshPos      int64
	freshFreePos  int64
	freshLimit    int64

	lookup *FreeBlockIndex

	scale              int64
	fixedBlockSizeUnit int64
	mainBlockSize      int64
	capacity           int

	manager DataSpaceManager
	log     logging.Logger
}

// NewTableSpaceAllocator returns an allocator for spaceID backed by
// manager, with the given layout constants. capacity bounds the
// released-extent free list; capacity == 0 disables free-list reuse
// entirely (every allocation comes straight from the current extent).
func NewTableSpaceAllocator(spaceID int, scale, fixedBlockSizeUnit, mainBlockSize int64, capacity int, manager DataSpaceManager, log logging.Logger) *TableSpaceAllocator {
	return &TableSpaceAllocator{
		spaceID:            spaceID,
		scale:              scale,
		fixedBlockSizeUnit: fixedBlockSizeUnit,
		mainBlockSize:      mainBlockSize,
		capacity:           capacity,
		lookup:             NewFreeBlockIndex(capacity),
		manager:            manager,
		log:                log,
	}
}

// GetFilePosition hands out a position for a row (or block) of
// rowSize bytes. When asBlocks is set, rowSize is first rounded up to
// fixedBlockSizeUnit and the returned position is aligned to that
// unit; otherwise no rounding or alignment is applied. It returns
// dberrors.NoSpaceError only when the global manager refuses to
// extend the file; the allocator never partially allocates.
func (a *TableSpaceAllocator) GetFilePosition(rowSize int64, asBlocks bool) (int64, error) {
	if asBlocks {
		rowSize = roundUp(rowSize, a.fixedBlockSizeUnit)
	}

	if rowSize > maxUnscaledPosition || a.capacity == 0 {
		return a.getNewBlock(rowSize)
	}

	idx := a.lookup.FindFirstGreaterEqualKeyIndex(rowSize)
	if idx == -1 {
		return a.getNewBlock(rowSize)
	}

	if asBlocks {
		for i := idx; i < a.lookup.Len(); i++ {
			pos := a.lookup.GetValue(i)
			if pos%a.fixedBlockSizeUnit == 0 {
				return a.takeFreeExtent(i, rowSize), nil
			}
		}
		return a.getNewBlock(rowSize)
	}

	return a.takeFreeExtent(idx, rowSize), nil
}

// takeFreeExtent removes the free extent at i, returns its position,
// and reinserts any remainder as a new free extent.
func (a *TableSpaceAllocator) takeFreeExtent(i int, rowSize int64) int64 {
	pos := a.lookup.GetValue(i)
	size := a.lookup.GetKey(i)
	a.lookup.Remove(i)
	if remainder := size - rowSize; remainder > 0 {
		a.lookup.Add(pos+rowSize, remainder)
	}
	return pos
}

// getNewBlock allocates rowSize bytes from the current extent,
// requesting a new one from the global manager when the current
// extent lacks room.
func (a *TableSpaceAllocator) getNewBlock(rowSize int64) (int64, error) {
	if a.freshFreePos+rowSize > a.freshLimit {
		if err := a.refreshExtent(rowSize); err != nil {
			return -1, err
		}
	}
	pos := a.freshFreePos
	a.freshFreePos += rowSize
	return pos, nil
}

// refreshExtent releases the current extent's unused tail and asks
// the global manager for a new extent sized to fit rowSize.
func (a *TableSpaceAllocator) refreshExtent(rowSize int64) error {
	if tail := a.freshLimit - a.freshFreePos; tail > 0 {
		a.release(a.freshFreePos, tail)
	}

	size := blockSizeFor(rowSize, a.mainBlockSize)
	pos, err := a.manager.GetFileBlocks(a.spaceID, size)
	if err != nil {
		a.log.Error().Err(err).Int("space", a.spaceID).Int64("size", size).Msg("extent request refused")
		return &dberrors.NoSpaceError{SpaceID: a.spaceID, RequestedSize: rowSize}
	}

	a.freshPos = pos
	a.freshFreePos = pos
	a.freshLimit = pos + size
	a.log.Debug().Int("space", a.spaceID).Int64("pos", pos).Int64("size", size).Msg("new extent")
	return nil
}

// Release marks [pos, pos+size) as free. Positions at or beyond
// droppedPositionBound are silently dropped: they become the global
// manager's responsibility on Close. When the free list is at
// capacity it is flushed to the global manager first.
func (a *TableSpaceAllocator) Release(pos, size int64) {
	a.release(pos, size)
}

func (a *TableSpaceAllocator) release(pos, size int64) {
	if pos >= droppedPositionBound {
		return
	}
	if a.lookup.Full() {
		a.flush()
	}
	a.lookup.Add(pos, size)
}

// flush hands the free list's current contents to the global manager
// and clears it.
func (a *TableSpaceAllocator) flush() {
	extents := a.lookup.ResetList()
	if len(extents) == 0 {
		return
	}
	if err := a.manager.FreeTableSpace(a.spaceID, extents); err != nil {
		a.log.Warn().Err(err).Int("space", a.spaceID).Msg("failed to flush free list")
	}
}

// Close hands the free list and the current extent's unused tail to
// the global manager, then resets the allocator to its zero state.
func (a *TableSpaceAllocator) Close() error {
	if tail := a.freshLimit - a.freshFreePos; tail > 0 {
		a.release(a.freshFreePos, tail)
	}
	a.flush()
	a.freshPos, a.freshFreePos, a.freshLimit = 0, 0, 0
	return nil
}

// roundUp rounds n up to the next multiple of unit.
func roundUp(n, unit int64) int64 {
	if n <= 0 {
		return 0
	}
	return ((n + unit - 1) / unit) * unit
}

// blockSizeFor returns max(mainBlockSize, smallest 2^n * mainBlockSize
// >= size), the extent size TableSpaceAllocator requests from the
// global manager on exhaustion.
func blockSizeFor(size, mainBlockSize int64) int64 {
	block := mainBlockSize
	for block < size {
		block *= 2
	}
	return block
}
