package rowstore

import "github.com/cloudfs/dbengine/internal/dberrors"

// Session is the minimal session surface rowstore needs: identifying
// the caller for diagnostics. The full SessionHook contract lives in
// internal/table; rowstore only depends on this much of it to avoid
// an import cycle between rowstore and table.
type Session interface {
	ID() string
}

// RowStore is the storage-backend abstraction. Once
// GetNewCachedObject returns, the row is reachable via Get(pos) until
// either Commit or an explicit Remove.
type RowStore interface {
	// GetNewCachedObject allocates a row for columnValues, assigning it
	// a file position for cached/text variants or a heap slot for the
	// memory variant.
	GetNewCachedObject(session Session, columnValues []any, indexCount int) (*Row, error)

	// Get materializes a row from the store by position.
	Get(pos int64) (*Row, bool)

	// GetAccessor returns the persisted root-node pointer for index i
	// in this store.
	GetAccessor(index int) any

	// SetAccessor sets the persisted root-node pointer for index i.
	SetAccessor(index int, node any)

	// Commit finalizes a previously staged row, making it visible
	// beyond the inserting transaction.
	Commit(row *Row) error

	// Remove deletes the row at pos from the store.
	Remove(pos int64) error

	// Release discards the entire store's contents and underlying
	// resources (used by moveData on failure, and on table drop).
	Release() error
}

// rootSlots holds the per-index root-node pointers shared by all three
// RowStore variants.
type rootSlots struct {
	roots []any
}

func newRootSlots(indexCount int) rootSlots {
	return rootSlots{roots: make([]any, indexCount)}
}

func (s *rootSlots) get(i int) any {
	if i >= len(s.roots) {
		return nil
	}
	return s.roots[i]
}

func (s *rootSlots) set(i int, node any) {
	if i >= len(s.roots) {
		grown := make([]any, i+1)
		copy(grown, s.roots)
		s.roots = grown
	}
	s.roots[i] = node
}

// errNotFound is the dberrors.ObjectNotFoundError value for a missing
// row. The lookups in this package report a miss through their ok
// result and do not return it.
var errNotFound = &dberrors.ObjectNotFoundError{Name: "row"}
