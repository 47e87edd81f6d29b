package table

import "github.com/cloudfs/dbengine/internal/dberrors"

// Kind tags the constraint variants from : PrimaryKey,
// Unique, ForeignKey, Check, NotNull.
type Kind int

const (
	KindPrimaryKey Kind = iota
	KindUnique
	KindForeignKey
	KindCheck
	KindNotNull
)

// ReferentialAction is the action a foreign key runs when the row it
// references is deleted.
type ReferentialAction int

const (
	// ActionRestrict rejects the delete when a referencing row exists
	// (the default when no ON DELETE clause is given).
	ActionRestrict ReferentialAction = iota
	ActionCascade
	ActionSetNull
	ActionSetDefault
)

// Constraint is a table's tagged constraint variant. PrimaryKey and
// Unique constraints are enforced via a backing index (IndexOrdinal);
// ForeignKey enforcement consults RefTable's backing unique index at
// insert/update time and drives the cascade walk at delete time;
// Check evaluates CheckFn; NotNull is additionally enforced inline,
// per column, by checkRowData rather than through this type, but is
// represented here too so a table's full constraint set — including
// NOT NULL — is enumerable in one place.
type Constraint struct {
	Name string
	Kind Kind

	// IndexOrdinal is the backing index for PrimaryKey/Unique.
	IndexOrdinal int

	// Column is the column ordinal for NotNull.
	Column int

	// ForeignKey fields.
	Owner                   *Table // the table this constraint is declared on
	RefTable                *Table
	RefIndexOrdinal         int
	ReferencingIndexOrdinal int // index on Owner covering LocalCols, used by the cascade walk
	LocalCols               []int
	RefCols                 []int
	Action                  ReferentialAction
	DefaultValues           []any

	// Check predicate; receives the full row tuple.
	CheckFn func(row []any) bool
}

// checkInsert runs this constraint's insert-time check, invoked when
// referential integrity is enabled. PrimaryKey/Unique/NotNull are checked
// elsewhere (index insertion and the per-column NOT NULL pass,
// respectively) so checkInsert is a no-op for them here.
func (c *Constraint) checkInsert(session SessionHook, tableName string, row []any) error {
	switch c.Kind {
	case KindForeignKey:
		return c.checkForeignKey(session, tableName, row)
	case KindCheck:
		if !c.CheckFn(row) {
			return &dberrors.CheckConstraintViolationError{Constraint: c.Name, Table: tableName}
		}
	}
	return nil
}

// checkForeignKey probes RefTable's referenced unique index. Following
// standard MATCH SIMPLE semantics, a referencing key with any null
// component is exempt from the check.
func (c *Constraint) checkForeignKey(session SessionHook, tableName string, row []any) error {
	key := make([]any, len(c.LocalCols))
	for i, col := range c.LocalCols {
		v := row[col]
		if v == nil {
			return nil
		}
		key[i] = v
	}

	refIndex := c.RefTable.Indexes[c.RefIndexOrdinal]
	it := refIndex.FindFirstRow(session.GetRowStore(c.RefTable), key)
	if !it.Valid() {
		return &dberrors.ForeignKeyViolationError{
			Constraint: c.Name,
			Table:      tableName,
			RefTable:   c.RefTable.Name,
		}
	}
	return nil
}
