package rowstore

import (
	"sync"

	"github.com/cloudfs/dbengine/internal/space"
)

// Persister is the external collaborator that durably stores and
// retrieves row bytes at a file position. Raw file I/O is out of
// scope for this engine; CachedRowStore only calls
// through this interface, and keeps an in-memory cache of the rows it
// has written or loaded; Get calls Load only on a cache miss.
type Persister interface {
	Persist(pos int64, row *Row) error
	Load(pos int64) (*Row, error)
	Delete(pos int64) error
}

// CachedRowStore is the disk-cached RowStore variant: row positions
// come from a space.TableSpaceAllocator, and rows are kept in an
// in-memory cache; a read falls back to the persister only when the
// row is not cached.
type CachedRowStore struct {
	mu        sync.RWMutex
	allocator *space.TableSpaceAllocator
	persist   Persister
	cache     map[int64]*Row
	rootSlots
}

// NewCachedRowStore returns a disk-cached store that assigns positions
// via allocator and durably stores rows via persist.
func NewCachedRowStore(allocator *space.TableSpaceAllocator, persist Persister, indexCount int) *CachedRowStore {
	return &CachedRowStore{
		allocator: allocator,
		persist:   persist,
		cache:     make(map[int64]*Row),
		rootSlots: newRootSlots(indexCount),
	}
}

func (c *CachedRowStore) GetNewCachedObject(_ Session, columnValues []any, indexCount int) (*Row, error) {
	// rowSize is a placeholder until a concrete on-disk row codec is
	// wired in from the (out-of-scope) serialization layer; every row
	// currently consumes a 1-byte allocation.
	pos, err := c.allocator.GetFilePosition(1, false)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	row := NewRow(pos, columnValues, indexCount)
	c.cache[pos] = row
	return row, nil
}

func (c *CachedRowStore) Get(pos int64) (*Row, bool) {
	c.mu.RLock()
	row, ok := c.cache[pos]
	c.mu.RUnlock()
	if ok {
		return row, true
	}

	loaded, err := c.persist.Load(pos)
	if err != nil || loaded == nil {
		return nil, false
	}

	c.mu.Lock()
	c.cache[pos] = loaded
	c.mu.Unlock()
	return loaded, true
}

func (c *CachedRowStore) Commit(row *Row) error {
	c.mu.Lock()
	c.cache[row.Pos] = row
	c.mu.Unlock()
	return c.persist.Persist(row.Pos, row)
}

func (c *CachedRowStore) Remove(pos int64) error {
	c.mu.Lock()
	delete(c.cache, pos)
	c.mu.Unlock()
	return c.persist.Delete(pos)
}

func (c *CachedRowStore) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[int64]*Row)
	c.rootSlots = newRootSlots(len(c.rootSlots.roots))
	return c.allocator.Close()
}

func (c *CachedRowStore) GetAccessor(index int) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rootSlots.get(index)
}

func (c *CachedRowStore) SetAccessor(index int, node any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rootSlots.set(index, node)
}
