// Package dbengine wires the engine's components — the table
// catalog, the statement cache, the schema clock, and logging — into a
// single facade the CLI drives. The engine packages underneath never
// see this type; it exists only for callers (the CLI, tests) to
// construct a working database without repeating the wiring each time.
package dbengine

import (
	"fmt"
	"path/filepath"

	"github.com/cloudfs/dbengine/internal/catalog"
	"github.com/cloudfs/dbengine/internal/dbengine/config"
	"github.com/cloudfs/dbengine/internal/dbengine/logging"
	"github.com/cloudfs/dbengine/internal/rowindex"
	"github.com/cloudfs/dbengine/internal/rowstore"
	"github.com/cloudfs/dbengine/internal/session"
	"github.com/cloudfs/dbengine/internal/space"
	"github.com/cloudfs/dbengine/internal/stmtcache"
	"github.com/cloudfs/dbengine/internal/table"
)

// Engine is the database-wide facade: one Catalog, one StatementCache,
// one schema clock, shared by every session opened against it.
type Engine struct {
	Config  config.Config
	Log     logging.Logger
	Catalog *catalog.Catalog
	Stmts   *stmtcache.StatementCache
	Schemas session.SchemaManager

	// Spaces is the database-wide DataSpaceManager every persistent
	// table's TableSpaceAllocator requests extents from and flushes
	// released extents to.
	Spaces *space.MemorySpaceManager

	nextSpaceID int
}

// New returns an Engine configured by cfg, with an empty catalog and
// statement cache.
func New(cfg config.Config, log logging.Logger) *Engine {
	return &Engine{
		Config:  cfg,
		Log:     log,
		Catalog: catalog.New(),
		Stmts:   stmtcache.New(),
		Schemas: session.NewSchemaManager(),
		Spaces:  space.NewMemorySpaceManager(0),
	}
}

// NewSession opens a session against this engine.
func (e *Engine) NewSession() *session.Session {
	return session.New(e.Schemas)
}

// ColumnDef describes one column of a CreateTable request.
type ColumnDef struct {
	Name      string
	Type      string // "int" or "text"
	MaxLength int    // only meaningful for "text"
	NotNull   bool
	Identity  bool
	PrimaryKey bool
}

// CreateTable registers a new table named name with the given
// columns, wiring a primary-key index over whichever columns are
// marked PrimaryKey (in declaration order), and bumps the engine's
// schema clock so any cached statement referencing this name
// invalidates correctly going forward. Columns backed the identity
// sequence start at 1.
func (e *Engine) CreateTable(name string, cols []ColumnDef) (*table.Table, error) {
	return e.createTable(name, cols, rowstore.NewMemoryRowStore(1))
}

// CreatePersistentTable registers a new table exactly like CreateTable,
// except its rows live in a rowstore.CachedRowStore backed by a
// space.TableSpaceAllocator (drawing extents from e.Spaces, per
// e.Config.Storage's layout constants) and a rowstore.SQLCipherPersister
// at e.Config.Storage.Path/name+".rows" — the end-to-end path that
// exercises table-space allocation and disk-backed row caching rather
// than CreateTable's pure in-memory store. e.Config.Storage.Path must
// be configured.
func (e *Engine) CreatePersistentTable(name string, cols []ColumnDef) (*table.Table, error) {
	if e.Config.Storage.Path == "" {
		return nil, fmt.Errorf("create persistent table %q: config has no storage.path configured", name)
	}

	persister, err := rowstore.OpenSQLCipherPersister(filepath.Join(e.Config.Storage.Path, name+".rows"), e.Config.Snapshot.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("create persistent table %q: %w", name, err)
	}

	e.nextSpaceID++
	allocator := space.NewTableSpaceAllocator(
		e.nextSpaceID,
		e.Config.Storage.Scale,
		e.Config.Storage.FixedBlockSizeUnit,
		e.Config.Storage.MainBlockSize,
		e.Config.Storage.FreeListCapacity,
		e.Spaces,
		e.Log,
	)

	return e.createTable(name, cols, rowstore.NewCachedRowStore(allocator, persister, 1))
}

// createTable is CreateTable/CreatePersistentTable's shared body: build
// the column list and primary-key index over store, register the
// table, and bump the schema clock.
func (e *Engine) createTable(name string, cols []ColumnDef, store rowstore.RowStore) (*table.Table, error) {
	tblCols := make([]table.Column, len(cols))
	var pkCols []int
	identityCol := -1
	for i, c := range cols {
		var ct table.ColumnType
		switch c.Type {
		case "int":
			ct = table.NewSimpleType("int", 0)
		default:
			ct = table.NewSimpleType("text", c.MaxLength)
		}
		tblCols[i] = table.Column{Name: c.Name, Type: ct, NotNull: c.NotNull, Identity: c.Identity}
		if c.PrimaryKey {
			pkCols = append(pkCols, i)
		}
		if c.Identity {
			identityCol = i
		}
	}

	t := table.NewTable(name, tblCols, store, e.Log)
	if identityCol >= 0 {
		t.IdentityColumn = identityCol
		t.Identity = table.NewIdentitySequence(1)
	}

	if len(pkCols) == 0 {
		pkCols = []int{0}
	}
	collators := make([]rowindex.Collator, len(pkCols))
	for i := range pkCols {
		collators[i] = naturalCollator{}
	}
	pk := rowindex.NewIndexTree(0, name+"_pk", pkCols, collators, true, false)
	t.AddIndex(pk)

	if _, err := e.Catalog.Add(t); err != nil {
		return nil, err
	}
	e.Schemas.BumpSchema()
	return t, nil
}

// referentialActionByName maps the CLI's ON DELETE flag spelling to
// table.ReferentialAction; an empty or unrecognized name defaults to
// RESTRICT, matching the engine's default when no action is named.
func referentialActionByName(name string) table.ReferentialAction {
	switch name {
	case "cascade":
		return table.ActionCascade
	case "set-null":
		return table.ActionSetNull
	case "set-default":
		return table.ActionSetDefault
	default:
		return table.ActionRestrict
	}
}

// AddForeignKey declares a foreign key from ownerTable's ownerCols to
// refTable's refCols, enforced with the named ON DELETE action
// ("cascade", "set-null", "set-default", or "restrict"/anything else),
// and bumps the engine's schema clock so cached statements over either
// table invalidate. refTable must already carry an index over refCols
// (whether it is unique is not checked); ownerTable gets one created
// over ownerCols if it doesn't already have one.
func (e *Engine) AddForeignKey(constraintName, ownerTable string, ownerCols []string, refTableName string, refCols []string, action string, defaults []any) error {
	owner, ok := e.Catalog.Lookup(ownerTable)
	if !ok {
		return fmt.Errorf("add foreign key %q: no such table %q", constraintName, ownerTable)
	}
	ref, ok := e.Catalog.Lookup(refTableName)
	if !ok {
		return fmt.Errorf("add foreign key %q: no such table %q", constraintName, refTableName)
	}

	collators := make([]rowindex.Collator, len(ownerCols))
	for i := range ownerCols {
		collators[i] = naturalCollator{}
	}
	if err := owner.AddForeignKeyByName(constraintName, ownerCols, collators, ref, refCols, referentialActionByName(action), defaults); err != nil {
		return err
	}
	e.Schemas.BumpSchema()
	return nil
}

// SnapshotTable writes every live row of the named table into its
// encrypted catalog snapshot, per e.Config.Snapshot, and closes it. A
// zero-value SnapshotConfig (empty Path) is a no-op, so callers that
// never configure snapshotting pay nothing on close.
func (e *Engine) SnapshotTable(name string) error {
	if e.Config.Snapshot.Path == "" {
		return nil
	}
	t, ok := e.Catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("snapshot table %q: not found", name)
	}

	path := filepath.Join(e.Config.Snapshot.Path, name+".snapshot")
	persister, err := rowstore.OpenSQLCipherPersister(path, e.Config.Snapshot.Passphrase)
	if err != nil {
		return fmt.Errorf("snapshot table %q: %w", name, err)
	}
	return t.Close(persister)
}

// naturalCollator orders the handful of Go kinds this engine's simple
// column types produce (int64 and string), enough to exercise index
// maintenance without a real SQL type system's coercion rules.
type naturalCollator struct{}

func (naturalCollator) Compare(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case int:
		bv, _ := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
