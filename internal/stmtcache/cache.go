package stmtcache

import "sync"

// StatementCache interns compiled statements keyed by (schema, SQL
// text), reusing a statement across sessions and callers while it
// remains valid, and transparently recompiling it once a schema change
// makes it stale. One instance is shared database-wide; every public
// method takes the cache's single mutex rather than finer-grained
// sharding — the cache is not a hot path relative to row access.
type StatementCache struct {
	mu sync.Mutex

	bySchema      map[string]map[string]int64 // schema -> sqlText -> id
	idToSQL       map[int64]string
	idToStatement map[int64]*Statement
	nextID        int64
}

// New returns an empty StatementCache.
func New() *StatementCache {
	return &StatementCache{
		bySchema:      make(map[string]map[string]int64),
		idToSQL:       make(map[int64]string),
		idToStatement: make(map[int64]*Statement),
	}
}

// Compile returns a valid, cached Statement for sql under session's
// current schema, compiling (and registering) a fresh one when no
// cached entry exists or the cached entry is stale. resultProperties
// and generatedColumnInfo describe the caller's requested shape for
// this particular compile request; they are attached to the returned
// Statement regardless of whether it came from cache or was freshly
// compiled, since two callers compiling identical SQL text may still
// ask for different result shapes.
func (c *StatementCache) Compile(session SessionHook, sql string, resultProperties, generatedColumnInfo any) (*Statement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	schema := session.CurrentSchema()
	if ids, ok := c.bySchema[schema]; ok {
		if id, ok := ids[sql]; ok {
			stmt := c.idToStatement[id]
			if stmt != nil && stmt.CompileTimestamp >= session.SchemaChangeTimestamp() {
				stmt.ResultProperties = resultProperties
				stmt.GeneratedColumnInfo = generatedColumnInfo
				return stmt, nil
			}
		}
	}

	stmt, err := session.CompileStatement(sql, resultProperties)
	if err != nil {
		return nil, err
	}
	stmt.SQLText = sql
	stmt.SchemaName = schema
	stmt.GeneratedColumnInfo = generatedColumnInfo
	stmt.CompileTimestamp = session.GlobalChangeTimestamp()

	c.registerLocked(-1, stmt)
	return stmt, nil
}

// GetStatement resolves a previously issued statement id. An unknown
// id returns (nil, nil) — not an error, since callers treat a missing
// statement as "recompile from scratch" rather than a failure. A stale
// statement is recompiled under its own original schema (not the
// calling session's current schema) before being returned, so a cached
// handle keeps meaning what it meant when it was first compiled.
func (c *StatementCache) GetStatement(session SessionHook, id int64) (*Statement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt := c.idToStatement[id]
	if stmt == nil {
		return nil, nil
	}
	if stmt.CompileTimestamp >= session.SchemaChangeTimestamp() {
		return stmt, nil
	}

	originalSchema := session.CurrentSchema()
	session.SetCurrentSchema(stmt.SchemaName)
	fresh, err := session.CompileStatement(stmt.SQLText, stmt.ResultProperties)
	session.SetCurrentSchema(originalSchema)
	if err != nil {
		c.freeStatementLocked(id)
		return nil, nil
	}

	fresh.SQLText = stmt.SQLText
	fresh.SchemaName = stmt.SchemaName
	fresh.GeneratedColumnInfo = stmt.GeneratedColumnInfo
	fresh.CompileTimestamp = session.GlobalChangeTimestamp()
	c.registerLocked(id, fresh)
	return fresh, nil
}

// RegisterStatement inserts stmt into the cache. A negative id
// requests a freshly assigned one; a non-negative id re-registers
// under that existing id, overwriting whatever was previously stored
// there. Either way stmt.CompileTimestamp is stamped to now and
// stmt.ID is set to the id actually used.
func (c *StatementCache) RegisterStatement(id int64, stmt *Statement, now int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	stmt.CompileTimestamp = now
	return c.registerLocked(id, stmt)
}

func (c *StatementCache) registerLocked(id int64, stmt *Statement) int64 {
	if id < 0 {
		id = c.nextID
		c.nextID++
	}
	stmt.ID = id

	ids, ok := c.bySchema[stmt.SchemaName]
	if !ok {
		ids = make(map[string]int64)
		c.bySchema[stmt.SchemaName] = ids
	}
	ids[stmt.SQLText] = id
	c.idToSQL[id] = stmt.SQLText
	c.idToStatement[id] = stmt
	return id
}

// FreeStatement evicts id from the cache. Freeing id -1 — the
// sentinel for "no statement" used by callers that may or may not
// hold one — is a no-op.
func (c *StatementCache) FreeStatement(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.freeStatementLocked(id)
}

func (c *StatementCache) freeStatementLocked(id int64) {
	if id == -1 {
		return
	}
	stmt := c.idToStatement[id]
	if stmt != nil {
		if ids, ok := c.bySchema[stmt.SchemaName]; ok {
			delete(ids, stmt.SQLText)
			if len(ids) == 0 {
				delete(c.bySchema, stmt.SchemaName)
			}
		}
	}
	delete(c.idToStatement, id)
	delete(c.idToSQL, id)
}

// Reset drops every cached statement and rewinds id assignment back to
// zero, for use when the whole cache needs to be invalidated at once
// rather than entry by entry (e.g. a hard schema reload).
func (c *StatementCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySchema = make(map[string]map[string]int64)
	c.idToSQL = make(map[int64]string)
	c.idToStatement = make(map[int64]*Statement)
	c.nextID = 0
}

// Len reports the number of statements currently cached, for tests and
// diagnostics.
func (c *StatementCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.idToStatement)
}
