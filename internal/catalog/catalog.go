// Package catalog is the arena owning every table in a schema.
// Tables are addressed by an id assigned at registration, and foreign
// keys are resolved through the arena by name rather than by a caller
// holding a direct pointer to the other table, so two tables can
// reference each other in a cycle. Resolving a foreign key fails with
// dberrors.ObjectNotFoundError while its target is not registered.
package catalog

import (
	"sync"

	"github.com/cloudfs/dbengine/internal/dberrors"
	"github.com/cloudfs/dbengine/internal/table"
)

// Catalog maps table ids and names to *table.Table, and resolves
// cross-table foreign-key edges on behalf of DDL callers.
type Catalog struct {
	mu     sync.RWMutex
	tables map[int64]*table.Table
	byName map[string]int64
	nextID int64
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		tables: make(map[int64]*table.Table),
		byName: make(map[string]int64),
	}
}

// Add registers t under a freshly assigned id. It fails with
// dberrors.DuplicateObjectError if a table of the same name is already
// registered.
func (c *Catalog) Add(t *table.Table) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[t.Name]; exists {
		return 0, &dberrors.DuplicateObjectError{Name: t.Name}
	}

	id := c.nextID
	c.nextID++
	c.tables[id] = t
	c.byName[t.Name] = id
	return id, nil
}

// Remove drops the table registered under id. It fails with
// dberrors.ObjectNotFoundError if id is unknown, and with
// dberrors.SchemaObjectInUseError if another table still references
// it via a foreign key — the caller must drop or redirect those
// constraints first.
func (c *Catalog) Remove(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[id]
	if !ok {
		return &dberrors.ObjectNotFoundError{Name: "table"}
	}
	if len(t.ReferencedBy) > 0 {
		return &dberrors.SchemaObjectInUseError{Object: t.Name}
	}

	delete(c.tables, id)
	delete(c.byName, t.Name)
	return nil
}

// Get resolves id to its table.
func (c *Catalog) Get(id int64) (*table.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[id]
	return t, ok
}

// Lookup resolves name to its table.
func (c *Catalog) Lookup(name string) (*table.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.tables[id], true
}

// ID resolves name to its arena id.
func (c *Catalog) ID(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	return id, ok
}

// Rename updates the name a table is registered under, for a DDL
// caller that builds a fresh table under a temporary name and swaps it
// in under the original's name. Table.MoveData does not call it.
func (c *Catalog) Rename(id int64, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[id]
	if !ok {
		return &dberrors.ObjectNotFoundError{Name: "table"}
	}
	if existingID, exists := c.byName[newName]; exists && existingID != id {
		return &dberrors.DuplicateObjectError{Name: newName}
	}

	delete(c.byName, t.Name)
	t.Name = newName
	c.byName[newName] = id
	return nil
}

// ResolveForeignKey links fk, declared on owner, to the table
// currently registered under refTableName, wiring both sides via
// Table.AddForeignKey. It fails with dberrors.ObjectNotFoundError if
// refTableName isn't registered — the arena places no ordering
// requirement on table creation, but a constraint can only be added
// once its target exists.
func (c *Catalog) ResolveForeignKey(owner *table.Table, refTableName string, fk *table.Constraint) error {
	c.mu.RLock()
	refID, ok := c.byName[refTableName]
	var ref *table.Table
	if ok {
		ref = c.tables[refID]
	}
	c.mu.RUnlock()

	if !ok {
		return &dberrors.ObjectNotFoundError{Name: refTableName}
	}

	fk.RefTable = ref
	owner.AddForeignKey(fk)
	return nil
}

// Tables returns every registered table, in no particular order —
// used by stats/dump commands that iterate the whole schema.
func (c *Catalog) Tables() []*table.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*table.Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	return out
}
