package table

import (
	"github.com/cloudfs/dbengine/internal/dberrors"
	"github.com/cloudfs/dbengine/internal/rowindex"
)

// AddForeignKeyByName declares a foreign key on t naming its local and
// referenced columns rather than ordinals — the shape a DDL caller
// that only has user-typed column identifiers actually has on hand.
// ownerCols/refCols resolve via requireColumn, so a typo names the
// offending table and column instead of silently defaulting to
// ordinal 0. refTable must already carry an index over refCols, in
// that order; the first such index is used and whether it is unique
// is not checked. t gets a new non-unique index over ownerCols,
// described via formatColumns in the error this returns when no
// matching index already exists on refTable, only when t doesn't
// already have one covering the same columns in the same order.
func (t *Table) AddForeignKeyByName(constraintName string, ownerCols []string, ownerCollators []rowindex.Collator, refTable *Table, refCols []string, action ReferentialAction, defaults []any) error {
	localOrds := make([]int, len(ownerCols))
	for i, n := range ownerCols {
		ord, err := requireColumn(t.Columns, n)
		if err != nil {
			return err
		}
		localOrds[i] = ord
	}
	refOrds := make([]int, len(refCols))
	for i, n := range refCols {
		ord, err := requireColumn(refTable.Columns, n)
		if err != nil {
			return err
		}
		refOrds[i] = ord
	}

	refIndexOrdinal := -1
	for _, ix := range refTable.Indexes {
		if sameColumnOrder(ix.Columns(), refOrds) {
			refIndexOrdinal = ix.Ordinal()
			break
		}
	}
	if refIndexOrdinal < 0 {
		return &dberrors.InternalInvariantError{
			Site: "table.AddForeignKeyByName: " + refTable.Name + " has no unique index over " + formatColumns(refTable.Columns, refOrds),
		}
	}

	referencingOrdinal := -1
	for _, ix := range t.Indexes {
		if sameColumnOrder(ix.Columns(), localOrds) {
			referencingOrdinal = ix.Ordinal()
			break
		}
	}
	if referencingOrdinal < 0 {
		ix := rowindex.NewIndexTree(len(t.Indexes), constraintName+"_idx", localOrds, ownerCollators, false, true)
		t.AddIndex(ix)
		referencingOrdinal = ix.Ordinal()
		if t.Store != nil {
			for it := t.Indexes[0].First(t.Store); it.Valid(); it.Next() {
				row, ok := t.Store.Get(it.Pos())
				if !ok {
					continue
				}
				row.GrowNodes(len(t.Indexes))
				if err := ix.Insert(t.Store, row); err != nil {
					return err
				}
			}
		}
	}

	t.AddForeignKey(&Constraint{
		Name:                    constraintName,
		Kind:                    KindForeignKey,
		RefTable:                refTable,
		RefIndexOrdinal:         refIndexOrdinal,
		ReferencingIndexOrdinal: referencingOrdinal,
		LocalCols:               localOrds,
		RefCols:                 refOrds,
		Action:                  action,
		DefaultValues:           defaults,
	})
	return nil
}

func sameColumnOrder(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PrimaryKeyColumnNames renders t's primary index's columns by name,
// via formatColumns, for stats/debug output.
func (t *Table) PrimaryKeyColumnNames() string {
	if len(t.Indexes) == 0 {
		return "(none)"
	}
	return formatColumns(t.Columns, t.Indexes[0].Columns())
}
