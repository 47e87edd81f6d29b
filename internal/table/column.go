// Package table implements the Table/row engine: row
// insert/update/delete with constraint enforcement, index maintenance,
// trigger firing, identity columns, and DDL-side definition moves.
package table

import (
	"fmt"

	"github.com/cloudfs/dbengine/internal/dberrors"
)

// ColumnType enforces a column's per-value type limits (truncation,
// range) and domain-level CHECK predicates. Concrete SQL type
// semantics and coercion rules are out of scope for this engine;
// ColumnType is the interface through which that external type system
// is consulted.
type ColumnType interface {
	// Name identifies the type for diagnostics.
	Name() string

	// Limit enforces range/truncation limits on v, returning the
	// possibly-adjusted value or an error if v cannot be made to fit.
	Limit(v any) (any, error)

	// CheckDomain evaluates this type's domain-level CHECK predicate,
	// if any. A type with no domain constraint always returns true.
	CheckDomain(v any) bool
}

// Column describes one column of a Table.
type Column struct {
	Name     string
	Type     ColumnType
	NotNull  bool
	Identity bool
}

// simpleType is a minimal ColumnType used where no domain CHECK or
// truncation rule applies beyond an optional max length — enough to
// exercise NOT NULL/CHECK/identity plumbing without depending on a
// concrete SQL type system.
type simpleType struct {
	name      string
	maxLength int // 0 means unbounded
}

// NewSimpleType returns a ColumnType named name with no domain CHECK
// and, when maxLength > 0, string values truncated to that length.
func NewSimpleType(name string, maxLength int) ColumnType {
	return &simpleType{name: name, maxLength: maxLength}
}

func (t *simpleType) Name() string { return t.name }

func (t *simpleType) Limit(v any) (any, error) {
	if t.maxLength <= 0 {
		return v, nil
	}
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if len(s) <= t.maxLength {
		return v, nil
	}
	return s[:t.maxLength], nil
}

func (t *simpleType) CheckDomain(any) bool { return true }

// columnIndex resolves name to its ordinal in cols, or -1.
func columnIndex(cols []Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// requireColumn resolves name, returning dberrors.ColumnNotFoundError
// when absent.
func requireColumn(cols []Column, name string) (int, error) {
	i := columnIndex(cols, name)
	if i < 0 {
		return -1, &dberrors.ColumnNotFoundError{Name: name}
	}
	return i, nil
}

func formatColumns(cols []Column, idx []int) string {
	names := make([]string, len(idx))
	for i, c := range idx {
		names[i] = cols[c].Name
	}
	return fmt.Sprint(names)
}
