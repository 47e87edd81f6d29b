package table

import (
	"github.com/cloudfs/dbengine/internal/dberrors"
	"github.com/cloudfs/dbengine/internal/rowstore"
)

// DeleteCascadingByKey locates the row in t's primary index matching
// data's primary-key columns and deletes it via DeleteCascading —
// the entry point a caller with only column values (not an
// already-materialized *rowstore.Row) uses to trigger a
// referential-action-aware delete.
func (t *Table) DeleteCascadingByKey(session SessionHook, data []any) error {
	if len(t.Indexes) == 0 {
		return &dberrors.InternalInvariantError{Site: "table.DeleteCascadingByKey: no primary index"}
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
	return t.DeleteCascading(session, row)
}

// cascadePlan accumulates the rows a cascading delete will remove and
// the rows it will update (SET NULL / SET DEFAULT), computed in full
// before any of it is executed — the full transitive closure of
// cascading deletes is computed before any referencing inserts are
// replayed. planned tracks rows already
// queued for deletion during this walk — separate from row.CascadeDeleted,
// which is only set once a row's delete is actually applied — so a
// diamond-shaped reference graph queues each row exactly once without
// short-circuiting the real deletion below.
type cascadePlan struct {
	deletes []cascadeDelete
	updates []cascadeUpdate
	planned map[*rowstore.Row]bool
}

type cascadeDelete struct {
	table *Table
	row   *rowstore.Row
}

type cascadeUpdate struct {
	table   *Table
	row     *rowstore.Row
	newData []any
}

// DeleteCascading deletes row from t and walks every foreign key that
// references t, applying CASCADE/SET NULL/SET DEFAULT to referencing
// rows — transitively. The plan's set of already planned rows guards
// against revisiting a row reached by another path; row.CascadeDeleted
// only skips rows deleted by an earlier cascade.
func (t *Table) DeleteCascading(session SessionHook, row *rowstore.Row) error {
	plan := &cascadePlan{planned: make(map[*rowstore.Row]bool)}
	if err := t.planCascade(session, row, plan); err != nil {
		return err
	}

	for _, d := range plan.deletes {
		if err := d.table.DeleteNoCheck(session, d.row); err != nil {
			return err
		}
	}
	for _, u := range plan.updates {
		if err := u.table.updateSingle(session, u.row, u.newData); err != nil {
			return err
		}
	}
	return nil
}

// planCascade adds row (and, transitively, every row CASCADE reaches)
// to plan.deletes, and every row a SET NULL/SET DEFAULT action reaches
// to plan.updates, without mutating any store or flipping
// row.CascadeDeleted — that happens when the plan is executed. A row
// already queued (plan.planned) or already deleted by an earlier,
// unrelated operation (row.CascadeDeleted) is skipped.
func (t *Table) planCascade(session SessionHook, row *rowstore.Row, plan *cascadePlan) error {
	if row.CascadeDeleted || plan.planned[row] {
		return nil
	}
	plan.planned[row] = true
	plan.deletes = append(plan.deletes, cascadeDelete{table: t, row: row})

	for _, fk := range t.ReferencedBy {
		key := make([]any, len(fk.RefCols))
		for i, c := range fk.RefCols {
			key[i] = row.Data[c]
		}

		ownerStore := session.GetRowStore(fk.Owner)
		idx := fk.Owner.Indexes[fk.ReferencingIndexOrdinal]
		var positions []int64
		for it := idx.FindFirstRow(ownerStore, key); it.Valid(); it.Next() {
			if idx.CompareRowNonUnique(key, rowAt(fk.Owner, ownerStore, it.Pos())) != 0 {
				break
			}
			positions = append(positions, it.Pos())
		}

		for _, pos := range positions {
			refRow, ok := ownerStore.Get(pos)
			if !ok || refRow.CascadeDeleted || plan.planned[refRow] {
				continue
			}

			switch fk.Action {
			case ActionCascade:
				if err := fk.Owner.planCascade(session, refRow, plan); err != nil {
					return err
				}
			case ActionSetNull:
				newData := append([]any(nil), refRow.Data...)
				for _, c := range fk.LocalCols {
					newData[c] = nil
				}
				plan.updates = append(plan.updates, cascadeUpdate{table: fk.Owner, row: refRow, newData: newData})
			case ActionSetDefault:
				newData := append([]any(nil), refRow.Data...)
				for i, c := range fk.LocalCols {
					newData[c] = fk.DefaultValues[i]
				}
				plan.updates = append(plan.updates, cascadeUpdate{table: fk.Owner, row: refRow, newData: newData})
			default: // ActionRestrict
				return &dberrors.ForeignKeyViolationError{Constraint: fk.Name, Table: fk.Owner.Name, RefTable: t.Name}
			}
		}
	}
	return nil
}

func rowAt(t *Table, store rowstore.RowStore, pos int64) *rowstore.Row {
	row, _ := store.Get(pos)
	return row
}
