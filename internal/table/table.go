package table

import (
	"sync"

	"github.com/cloudfs/dbengine/internal/dbengine/logging"
	"github.com/cloudfs/dbengine/internal/dberrors"
	"github.com/cloudfs/dbengine/internal/rowindex"
	"github.com/cloudfs/dbengine/internal/rowstore"
)

// Table is the row engine's central object: a fixed
// column list, the constraint set enforced on every insert/update, one
// backing IndexTree per declared index (position 0 is always the
// primary key or, absent one, the table's implicit row-identity
// index), the trigger set, an optional identity column, and the
// RowStore backing its rows.
type Table struct {
	Name    string
	Columns []Column

	Constraints []*Constraint
	Indexes     []*rowindex.IndexTree

	// ReferencedBy lists foreign-key constraints, owned by other
	// tables, whose RefTable is this one — the reverse edges the
	// cascade walk needs. Populated by the DDL layer when a foreign key
	// is added, via AddReferencingConstraint.
	ReferencedBy []*Constraint

	Triggers *TriggerSet

	// IdentityColumn is the ordinal of this table's identity column,
	// or -1 if it has none.
	IdentityColumn int
	Identity       *IdentitySequence

	Store rowstore.RowStore

	// ReadOnly rejects every mutating operation with
	// dberrors.DataReadOnlyError.
	ReadOnly bool

	// Logged marks rows of this table for log-record emission on
	// insert/delete, consulted by the session's AddInsertAction /
	// AddDeleteAction implementation.
	Logged bool

	Log logging.Logger

	mu       sync.Mutex
	rowCount int64
}

// NewTable returns an empty table named name over cols, with no
// identity column and no constraints or indexes; callers add those via
// AddConstraint/AddIndex/AddReferencingConstraint before first use.
func NewTable(name string, cols []Column, store rowstore.RowStore, log logging.Logger) *Table {
	return &Table{
		Name:           name,
		Columns:        cols,
		Triggers:       NewTriggerSet(),
		IdentityColumn: -1,
		Store:          store,
		Log:            log,
	}
}

// AddIndex appends ix to the table's index list. ix.Ordinal() must
// equal len(Indexes) before the call.
func (t *Table) AddIndex(ix *rowindex.IndexTree) {
	t.Indexes = append(t.Indexes, ix)
}

// AddConstraint appends c to the table's constraint list.
func (t *Table) AddConstraint(c *Constraint) {
	t.Constraints = append(t.Constraints, c)
}

// AddReferencingConstraint registers fk (owned by another table) as a
// reverse edge on t, the table fk references. Called by the DDL layer
// when a foreign key naming t as RefTable is created.
func (t *Table) AddReferencingConstraint(fk *Constraint) {
	t.ReferencedBy = append(t.ReferencedBy, fk)
}

// AddForeignKey declares fk as owned by t, wiring both sides of the
// edge: fk joins t.Constraints, and fk joins fk.RefTable.ReferencedBy
// so the cascade walk can find it from the referenced side. fk.Owner
// is set to t regardless of its current value.
func (t *Table) AddForeignKey(fk *Constraint) {
	fk.Owner = t
	t.Constraints = append(t.Constraints, fk)
	fk.RefTable.AddReferencingConstraint(fk)
}

// RowCount returns the table's current row count.
func (t *Table) RowCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rowCount
}

// InsertRow implements row-insertion pipeline for a
// single row: identity-column assignment, BEFORE ROW INSERT triggers,
// constraint checking, index maintenance, and journal recording.
func (t *Table) InsertRow(session SessionHook, data []any) (*rowstore.Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ReadOnly {
		return nil, &dberrors.DataReadOnlyError{Table: t.Name}
	}

	t.setIdentityColumn(data)

	if session.ReferentialIntegrityEnabled() {
		newData, err := t.Triggers.fireRow(Before, EventInsert, nil, data)
		if err != nil {
			return nil, err
		}
		data = newData
	}

	if err := t.checkRowData(session, data); err != nil {
		return nil, err
	}

	row, err := t.indexRow(session, data)
	if err != nil {
		return nil, err
	}

	session.AddInsertAction(t, row)
	t.rowCount++

	if session.ReferentialIntegrityEnabled() {
		if _, err := t.Triggers.fireRow(After, EventInsert, nil, row.Data); err != nil {
			return row, err
		}
	}

	t.Log.Debug().Str("table", t.Name).Int64("pos", row.Pos).Msg("row inserted")
	return row, nil
}

// Insert wraps InsertRow for a batch, firing the statement-level
// BEFORE/AFTER INSERT triggers once around the whole set. On a mid-batch failure the
// rows already inserted are left in place — statement-level atomicity
// is the transaction manager's responsibility, out of scope here — and
// the AFTER STATEMENT trigger does not fire.
func (t *Table) Insert(session SessionHook, dataset [][]any) ([]*rowstore.Row, error) {
	if session.ReferentialIntegrityEnabled() {
		if err := t.Triggers.fireStatement(Before, EventInsert); err != nil {
			return nil, err
		}
	}

	rows := make([]*rowstore.Row, 0, len(dataset))
	for _, data := range dataset {
		row, err := t.InsertRow(session, data)
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}

	if session.ReferentialIntegrityEnabled() {
		if err := t.Triggers.fireStatement(After, EventInsert); err != nil {
			return rows, err
		}
	}
	return rows, nil
}

// checkRowData runs the full validation pass: per
// column type limits, domain CHECK, NOT NULL, and — when the session
// has referential integrity enabled — every constraint's checkInsert
// (foreign keys and table-level CHECK constraints).
func (t *Table) checkRowData(session SessionHook, data []any) error {
	for i, col := range t.Columns {
		if data[i] == nil {
			if col.NotNull {
				return &dberrors.NotNullViolationError{Table: t.Name, Column: col.Name, Constraint: col.Name + "_not_null"}
			}
			continue
		}

		v, err := col.Type.Limit(data[i])
		if err != nil {
			return &dberrors.CheckConstraintViolationError{Constraint: col.Name + "_limit", Table: t.Name}
		}
		data[i] = v

		if !col.Type.CheckDomain(data[i]) {
			return &dberrors.CheckConstraintViolationError{Constraint: col.Name + "_domain", Table: t.Name}
		}
	}

	if !session.ReferentialIntegrityEnabled() {
		return nil
	}
	for _, c := range t.Constraints {
		if err := c.checkInsert(session, t.Name, data); err != nil {
			return err
		}
	}
	return nil
}

// indexRow allocates a row in the store and links it into every index,
// rolling back (unlinking already-inserted indexes and freeing the
// row) if any index insertion fails, per the all-or-nothing
// propagation rule every constraint violation follows.
func (t *Table) indexRow(session SessionHook, data []any) (*rowstore.Row, error) {
	store := session.GetRowStore(t)
	row, err := store.GetNewCachedObject(session, data, len(t.Indexes))
	if err != nil {
		return nil, err
	}

	for i, ix := range t.Indexes {
		if err := ix.Insert(store, row); err != nil {
			for k := i - 1; k >= 0; k-- {
				if node, ok := row.Node(k).(*rowindex.Node); ok {
					t.Indexes[k].Delete(store, node)
				}
			}
			_ = store.Remove(row.Pos)
			return nil, err
		}
	}

	if err := store.Commit(row); err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteNoCheck implements unconditional row deletion:
// idempotent under the cascade guard, unlinking row from every index,
// recording the journal action, and removing it from the store.
func (t *Table) DeleteNoCheck(session SessionHook, row *rowstore.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deleteNoCheckLocked(session, row)
}

func (t *Table) deleteNoCheckLocked(session SessionHook, row *rowstore.Row) error {
	if row.CascadeDeleted {
		return nil
	}

	store := session.GetRowStore(t)

	if session.ReferentialIntegrityEnabled() {
		if _, err := t.Triggers.fireRow(Before, EventDelete, row.Data, nil); err != nil {
			return err
		}
	}

	for i, ix := range t.Indexes {
		if node, ok := row.Node(i).(*rowindex.Node); ok {
			ix.Delete(store, node)
		}
	}

	session.AddDeleteAction(t, row)
	row.CascadeDeleted = true
	t.rowCount--

	if err := store.Remove(row.Pos); err != nil {
		return err
	}

	if session.ReferentialIntegrityEnabled() {
		if _, err := t.Triggers.fireRow(After, EventDelete, row.Data, nil); err != nil {
			return err
		}
	}

	t.Log.Debug().Str("table", t.Name).Int64("pos", row.Pos).Msg("row deleted")
	return nil
}

// DeleteNoCheckFromLog is the log-replay counterpart of DeleteNoCheck:
// it locates the row by its primary-index key rather than by an
// already-materialized *rowstore.Row, and skips trigger firing
// (triggers already fired before the original log record was written).
func (t *Table) DeleteNoCheckFromLog(session SessionHook, data []any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.Indexes) == 0 {
		return &dberrors.InternalInvariantError{Site: "table.DeleteNoCheckFromLog: no primary index"}
	}
	store := session.GetRowStore(t)
	primary := t.Indexes[0]
	key := make([]any, len(primary.Columns()))
	for i, c := range primary.Columns() {
		key[i] = data[c]
	}

	it := primary.FindFirstRow(store, key)
	if !it.Valid() {
		return &dberrors.ObjectNotFoundError{Name: t.Name + ".row"}
	}
	row, ok := store.Get(it.Pos())
	if !ok {
		return &dberrors.ObjectNotFoundError{Name: t.Name + ".row"}
	}
	if row.CascadeDeleted {
		return nil
	}

	for i, ix := range t.Indexes {
		if node, ok := row.Node(i).(*rowindex.Node); ok {
			ix.Delete(store, node)
		}
	}
	row.CascadeDeleted = true
	t.rowCount--
	return store.Remove(row.Pos)
}

// RowUpdate pairs an existing row with its replacement column values —
// an update logically deletes the old row(s) and inserts the new as a
// single set-oriented operation, so unique-key swaps within the set
// succeed.
type RowUpdate struct {
	Row     *rowstore.Row
	NewData []any
}

// Update implements the row-update pipeline: validates none of
// the targeted rows are already cascade-deleted and every replacement
// tuple passes checkRowData, deletes every old row, then inserts every
// new row — in that order, so that a unique value moving from one row
// in the set to another within the same statement is legal.
func (t *Table) Update(session SessionHook, pairs []RowUpdate) ([]*rowstore.Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ReadOnly {
		return nil, &dberrors.DataReadOnlyError{Table: t.Name}
	}

	for _, p := range pairs {
		if p.Row.CascadeDeleted {
			return nil, &dberrors.ObjectNotFoundError{Name: t.Name + ".row"}
		}
	}

	for i := range pairs {
		p := &pairs[i]
		if session.ReferentialIntegrityEnabled() {
			newData, err := t.Triggers.fireRow(Before, EventUpdate, p.Row.Data, p.NewData)
			if err != nil {
				return nil, err
			}
			p.NewData = newData
		}
		if err := t.checkRowData(session, p.NewData); err != nil {
			return nil, err
		}
	}

	for _, p := range pairs {
		if err := t.deleteNoCheckLocked(session, p.Row); err != nil {
			return nil, err
		}
	}

	newRows := make([]*rowstore.Row, 0, len(pairs))
	for _, p := range pairs {
		row, err := t.indexRow(session, p.NewData)
		if err != nil {
			return newRows, err
		}
		session.AddInsertAction(t, row)
		t.rowCount++
		newRows = append(newRows, row)
	}

	if session.ReferentialIntegrityEnabled() {
		for i, p := range pairs {
			if _, err := t.Triggers.fireRow(After, EventUpdate, p.Row.Data, newRows[i].Data); err != nil {
				return newRows, err
			}
		}
	}
	return newRows, nil
}

// copyAdjustArray builds a newColCount-wide row from old, translating
// column i of the new layout from old[colMapping[i]] when colMapping[i]
// is >= 0, or leaving it nil (for the caller to fill with a default)
// when colMapping[i] is -1 — column add/drop move.
func copyAdjustArray(old []any, colMapping []int, newColCount int) []any {
	out := make([]any, newColCount)
	for i := 0; i < newColCount && i < len(colMapping); i++ {
		if colMapping[i] >= 0 && colMapping[i] < len(old) {
			out[i] = old[colMapping[i]]
		}
	}
	return out
}

// MoveData implements a DDL-side definition move: every row of t is
// read via a full primary-index scan, translated to the new table's
// column layout via colMapping and defaults, and reinserted into
// newTable — rebuilding every index from scratch rather than trying to
// adjust them in place. On any failure newTable's partially populated
// store is released and the error returned; t itself is never
// modified.
//
// When stagingPath is non-empty, every translated row is durably
// recorded in a bbolt-backed staging file at that path before it is
// reinserted into newTable, giving the move a real transactional
// staging area distinct from newTable's own (possibly still-empty)
// store; the staging file is removed once the scan finishes
// successfully. An empty stagingPath skips this and moves data
// directly, for callers (tests, in-memory tables) that have no
// durable destination to protect against losing in the first place.
func (t *Table) MoveData(session SessionHook, newTable *Table, colMapping []int, defaults []any, stagingPath string) error {
	if len(t.Indexes) == 0 {
		return &dberrors.InternalInvariantError{Site: "table.MoveData: source has no primary index"}
	}

	var staging *stagingStore
	if stagingPath != "" {
		db, err := openStagingStore(stagingPath)
		if err != nil {
			return err
		}
		staging = db
	}

	store := session.GetRowStore(t)
	newStore := session.GetRowStore(newTable)
	primary := t.Indexes[0]
	for it := primary.First(store); it.Valid(); it.Next() {
		row, ok := store.Get(it.Pos())
		if !ok {
			continue
		}

		newData := copyAdjustArray(row.Data, colMapping, len(newTable.Columns))
		for i, v := range newData {
			if v == nil && i < len(defaults) && defaults[i] != nil {
				newData[i] = defaults[i]
			}
		}

		if staging != nil {
			if err := staging.put(row.Pos, newData); err != nil {
				_ = newStore.Release()
				return err
			}
		}

		newTable.systemSetIdentityColumn(newData)
		if _, err := newTable.indexRow(session, newData); err != nil {
			_ = newStore.Release()
			return err
		}
		newTable.rowCount++
	}

	if staging != nil {
		if err := staging.close(stagingPath); err != nil {
			return err
		}
	}
	return nil
}

// updateSingle is the single-row convenience entry used by the cascade
// walk's SET NULL / SET DEFAULT actions.
func (t *Table) updateSingle(session SessionHook, row *rowstore.Row, newData []any) error {
	_, err := t.Update(session, []RowUpdate{{Row: row, NewData: newData}})
	return err
}

// Close writes every live row of the table into snapshot, an encrypted
// catalog snapshot opened separately by the caller (typically via
// rowstore.OpenSQLCipherPersister), then closes snapshot. It does not
// touch t.Store, which the caller closes or releases on its own terms.
func (t *Table) Close(snapshot rowstore.Persister) error {
	if len(t.Indexes) > 0 {
		primary := t.Indexes[0]
		for it := primary.First(t.Store); it.Valid(); it.Next() {
			row, ok := t.Store.Get(it.Pos())
			if !ok {
				continue
			}
			if err := snapshot.Persist(row.Pos, row); err != nil {
				return err
			}
		}
	}

	if closer, ok := snapshot.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
