package space

import (
	"errors"
	"io"
	"testing"

	"github.com/cloudfs/dbengine/internal/dbengine/logging"
	"github.com/cloudfs/dbengine/internal/dberrors"
)

func discardLog() logging.Logger { return logging.New(io.Discard, "test") }

// fakeManager is a DataSpaceManager test double handing out
// sequential extents of whatever size is requested, up to a
// configurable ceiling.
type fakeManager struct {
	nextPos  int64
	ceiling  int64
	freed    []Extent
	refusals int
}

func (m *fakeManager) GetFileBlocks(spaceID int, size int64) (int64, error) {
	if m.ceiling > 0 && m.nextPos+size > m.ceiling {
		m.refusals++
		return -1, errors.New("out of space")
	}
	pos := m.nextPos
	m.nextPos += size
	return pos, nil
}

func (m *fakeManager) FreeTableSpace(spaceID int, extents []Extent) error {
	m.freed = append(m.freed, extents...)
	return nil
}

func TestTableSpaceAllocator_GetFilePosition_BumpAllocatesWithinExtent(t *testing.T) {
	mgr := &fakeManager{}
	a := NewTableSpaceAllocator(1, 16, 4096, 1024, 8, mgr, discardLog())

	p1, err := a.GetFilePosition(100, false)
	if err != nil {
		t.Fatalf("alloc 1: %v", err)
	}
	p2, err := a.GetFilePosition(100, false)
	if err != nil {
		t.Fatalf("alloc 2: %v", err)
	}
	if p2 != p1+100 {
		t.Fatalf("expected sequential bump allocation, got p1=%d p2=%d", p1, p2)
	}
}

func TestTableSpaceAllocator_Release_ReusesFreedExtent(t *testing.T) {
	mgr := &fakeManager{}
	a := NewTableSpaceAllocator(1, 16, 4096, 1024, 8, mgr, discardLog())

	pos, err := a.GetFilePosition(200, false)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	a.Release(pos, 200)

	reused, err := a.GetFilePosition(200, false)
	if err != nil {
		t.Fatalf("alloc after release: %v", err)
	}
	if reused != pos {
		t.Fatalf("expected the released extent to be reused at %d, got %d", pos, reused)
	}
}

func TestTableSpaceAllocator_GetFilePosition_RequestsNewExtentOnExhaustion(t *testing.T) {
	mgr := &fakeManager{ceiling: 3000}
	a := NewTableSpaceAllocator(1, 16, 4096, 1024, 8, mgr, discardLog())

	_, err := a.GetFilePosition(1024, false)
	if err != nil {
		t.Fatalf("first alloc: %v", err)
	}
	_, err = a.GetFilePosition(900, false)
	if err != nil {
		t.Fatalf("expected a second extent to be requested, got error: %v", err)
	}
}

func TestTableSpaceAllocator_GetFilePosition_NoSpaceError(t *testing.T) {
	mgr := &fakeManager{ceiling: 10}
	a := NewTableSpaceAllocator(1, 16, 4096, 1024, 8, mgr, discardLog())

	_, err := a.GetFilePosition(5000, false)
	var noSpace *dberrors.NoSpaceError
	if !errors.As(err, &noSpace) {
		t.Fatalf("expected NoSpaceError, got %v", err)
	}
}

func TestTableSpaceAllocator_Close_FlushesFreeListAndTail(t *testing.T) {
	mgr := &fakeManager{}
	a := NewTableSpaceAllocator(1, 16, 4096, 1024, 8, mgr, discardLog())

	pos, err := a.GetFilePosition(100, false)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	a.Release(pos, 100)

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(mgr.freed) == 0 {
		t.Fatal("expected Close to flush released extents and the fresh-extent tail to the manager")
	}
}
