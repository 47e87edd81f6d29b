package table

import "github.com/cloudfs/dbengine/internal/rowstore"

// SessionHook is the external collaborator the row engine needs: the
// calling session supplies transaction-journal bookkeeping, the
// row store to use, and the referential-integrity toggle. The row
// engine never constructs a concrete session, only consumes this
// interface — a SessionHook also satisfies rowstore.Session (both
// declare ID() string), so it can be passed directly to RowStore
// methods.
type SessionHook interface {
	rowstore.Session

	// AddInsertAction records an InsertAction on the session's
	// transaction journal, and — when table.Logged is set — emits an
	// insert log record.
	AddInsertAction(table *Table, row *rowstore.Row)

	// AddDeleteAction records a DeleteAction on the session's
	// transaction journal, and emits a delete log record when the
	// table is logged.
	AddDeleteAction(table *Table, row *rowstore.Row)

	// GetRowStore returns the per-session row store to use for table.
	GetRowStore(table *Table) rowstore.RowStore

	// ReferentialIntegrityEnabled reports the session-toggled
	// referential-integrity flag; when false, foreign-key checks and
	// trigger firing are both skipped.
	ReferentialIntegrityEnabled() bool
}
