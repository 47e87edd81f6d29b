// Package session defines the SchemaManager clock surface and provides
// Session, the concrete implementation of the SessionHook interfaces
// declared in internal/table and internal/stmtcache, used by the CLI
// and by package tests.
// The engine packages themselves never construct a concrete session —
// only callers do.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cloudfs/dbengine/internal/rowstore"
	"github.com/cloudfs/dbengine/internal/stmtcache"
	"github.com/cloudfs/dbengine/internal/table"
)

// ActionKind distinguishes the two row-level journal entries a session
// records.
type ActionKind int

const (
	ActionInsert ActionKind = iota
	ActionDelete
)

// Action is one journaled row-level event, recorded by AddInsertAction
// / AddDeleteAction in commit order.
type Action struct {
	Kind  ActionKind
	Table string
	Pos   int64
}

// SchemaManager tracks the two logical clocks StatementCache validates
// compiled statements against: a global change counter that advances
// on every DDL or DML commit, and a schema counter that only advances
// on DDL. Bumping schema always bumps global too, since a schema
// change is itself a change.
type SchemaManager interface {
	GlobalChangeTimestamp() int64
	SchemaChangeTimestamp() int64

	// BumpGlobal advances and returns the global counter, called after
	// any committed row-level change.
	BumpGlobal() int64

	// BumpSchema advances (and returns) both counters, called after any
	// committed DDL change — column/constraint/index add or drop,
	// moveData.
	BumpSchema() int64
}

// clock is the default SchemaManager: two mutex-guarded counters, no
// persistence of its own — a caller that needs the clocks to survive a
// restart wraps this or substitutes its own SchemaManager.
type clock struct {
	mu     sync.Mutex
	global int64
	schema int64
}

// NewSchemaManager returns a SchemaManager starting both clocks at
// zero.
func NewSchemaManager() SchemaManager { return &clock{} }

func (c *clock) GlobalChangeTimestamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.global
}

func (c *clock) SchemaChangeTimestamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema
}

func (c *clock) BumpGlobal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global++
	return c.global
}

func (c *clock) BumpSchema() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global++
	c.schema = c.global
	return c.schema
}

// Session is the concrete SessionHook used to drive internal/table and
// internal/stmtcache: one per connection, identified by a uuid. It
// owns the row-level action journal, the referential-integrity
// toggle, and the session's active schema name.
type Session struct {
	id      string
	schemas SchemaManager

	mu           sync.Mutex
	schema       string
	stores       map[*table.Table]rowstore.RowStore
	journal      []Action
	refIntegrity bool
}

// New returns a Session bound to schemas, starting in schema "public"
// with referential integrity enabled.
func New(schemas SchemaManager) *Session {
	return &Session{
		id:           uuid.New().String(),
		schemas:      schemas,
		schema:       "public",
		stores:       make(map[*table.Table]rowstore.RowStore),
		refIntegrity: true,
	}
}

// ID satisfies rowstore.Session and table.SessionHook.
func (s *Session) ID() string { return s.id }

// CurrentSchema satisfies stmtcache.SessionHook.
func (s *Session) CurrentSchema() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// SetCurrentSchema satisfies stmtcache.SessionHook.
func (s *Session) SetCurrentSchema(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = name
}

// GlobalChangeTimestamp satisfies stmtcache.SessionHook, delegating to
// the bound SchemaManager.
func (s *Session) GlobalChangeTimestamp() int64 { return s.schemas.GlobalChangeTimestamp() }

// SchemaChangeTimestamp satisfies stmtcache.SessionHook, delegating to
// the bound SchemaManager.
func (s *Session) SchemaChangeTimestamp() int64 { return s.schemas.SchemaChangeTimestamp() }

// CompileStatement satisfies stmtcache.SessionHook. This engine has no
// SQL parser of its own; compilation here is the identity transform —
// the raw text becomes its own Executable — and a caller wiring a real
// planner on top supplies its own CompileStatement-equivalent further
// up the stack and adapts it to this signature.
func (s *Session) CompileStatement(sql string, resultProperties any) (*stmtcache.Statement, error) {
	return &stmtcache.Statement{
		Executable:       sql,
		ResultProperties: resultProperties,
	}, nil
}

// ReferentialIntegrityEnabled satisfies table.SessionHook.
func (s *Session) ReferentialIntegrityEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refIntegrity
}

// SetReferentialIntegrityEnabled toggles foreign-key and trigger
// enforcement for subsequent operations on this session — used by
// moveData-style DDL flows and by log replay, both of which reapply
// already-validated data.
func (s *Session) SetReferentialIntegrityEnabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refIntegrity = v
}

// BindRowStore overrides the row store GetRowStore returns for t,
// e.g. a per-transaction overlay store layered on top of t's committed
// store. Tables not bound here fall back to their own Store field.
func (s *Session) BindRowStore(t *table.Table, rs rowstore.RowStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[t] = rs
}

// GetRowStore satisfies table.SessionHook.
func (s *Session) GetRowStore(t *table.Table) rowstore.RowStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rs, ok := s.stores[t]; ok {
		return rs
	}
	return t.Store
}

// AddInsertAction satisfies table.SessionHook, appending to the
// session's journal.
func (s *Session) AddInsertAction(t *table.Table, row *rowstore.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, Action{Kind: ActionInsert, Table: t.Name, Pos: row.Pos})
	if t.Logged {
		t.Log.Debug().Str("table", t.Name).Int64("pos", row.Pos).Str("session", s.id).Msg("insert logged")
	}
}

// AddDeleteAction satisfies table.SessionHook, appending to the
// session's journal.
func (s *Session) AddDeleteAction(t *table.Table, row *rowstore.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, Action{Kind: ActionDelete, Table: t.Name, Pos: row.Pos})
	if t.Logged {
		t.Log.Debug().Str("table", t.Name).Int64("pos", row.Pos).Str("session", s.id).Msg("delete logged")
	}
}

// Journal returns a copy of the actions recorded so far.
func (s *Session) Journal() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.journal))
	copy(out, s.journal)
	return out
}

// ResetJournal clears the recorded actions, called once the caller's
// transaction manager has durably committed them elsewhere.
func (s *Session) ResetJournal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = nil
}
