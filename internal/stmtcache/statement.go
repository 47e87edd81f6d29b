// Package stmtcache implements StatementCache: the per-database
// registry that interns compiled statements by (schema, SQL text),
// reuses them across sessions, and invalidates/recompiles them on
// schema change.
package stmtcache

// Statement is a compiled statement handle. compileTimestamp is the
// global change timestamp at which it was compiled; it is valid iff
// compileTimestamp >= the schema manager's current schema-change
// timestamp.
type Statement struct {
	ID                 int64
	SQLText            string
	SchemaName         string
	CompileTimestamp   int64
	ResultProperties    any
	GeneratedColumnInfo any
	Executable          any
}

// SessionHook is the external collaborator stmtcache needs from the
// calling session: recompilation, the session's schema context, and
// the global change timestamp. Defined locally — rather than importing
// internal/session — to avoid an import cycle symmetric with
// internal/table's SessionHook.
type SessionHook interface {
	// CurrentSchema returns the session's active schema name.
	CurrentSchema() string

	// SetCurrentSchema temporarily swaps the session's active schema,
	// used by getStatement's recompile-under-original-schema step. The
	// caller always restores the session's original schema afterward.
	SetCurrentSchema(name string)

	// CompileStatement compiles sql under the session's current schema,
	// returning a fresh Statement with at least Executable and
	// ResultProperties populated. The cache then sets SQLText,
	// SchemaName, GeneratedColumnInfo, CompileTimestamp and ID itself.
	CompileStatement(sql string, resultProperties any) (*Statement, error)

	// GlobalChangeTimestamp returns the database's current global
	// change timestamp, stamped onto a statement at (re)compile time.
	GlobalChangeTimestamp() int64

	// SchemaChangeTimestamp returns the timestamp of the most recent
	// schema-altering DDL, against which compiled statements are
	// validated.
	SchemaChangeTimestamp() int64
}
