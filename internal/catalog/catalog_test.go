package catalog

import (
	"errors"
	"io"
	"testing"

	"github.com/cloudfs/dbengine/internal/dbengine/logging"
	"github.com/cloudfs/dbengine/internal/dberrors"
	"github.com/cloudfs/dbengine/internal/rowindex"
	"github.com/cloudfs/dbengine/internal/rowstore"
	"github.com/cloudfs/dbengine/internal/table"
)

func discardLog() logging.Logger { return logging.New(io.Discard, "test") }

type intCollator struct{}

func (intCollator) Compare(a, b any) int {
	ai, _ := a.(int64)
	bi, _ := b.(int64)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func newTable(name string) *table.Table {
	cols := []table.Column{
		{Name: "id", Type: table.NewSimpleType("int", 0), NotNull: true},
	}
	store := rowstore.NewMemoryRowStore(1)
	t := table.NewTable(name, cols, store, discardLog())
	ix := rowindex.NewIndexTree(0, name+"_pk", []int{0}, []rowindex.Collator{intCollator{}}, true, false)
	t.AddIndex(ix)
	return t
}

func TestCatalog_AddLookupGet(t *testing.T) {
	c := New()
	tbl := newTable("orders")

	id, err := c.Add(tbl)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, ok := c.Get(id)
	if !ok || got != tbl {
		t.Fatalf("expected Get(%d) to return the registered table", id)
	}

	byName, ok := c.Lookup("orders")
	if !ok || byName != tbl {
		t.Fatal("expected Lookup(orders) to return the registered table")
	}

	gotID, ok := c.ID("orders")
	if !ok || gotID != id {
		t.Fatalf("expected ID(orders)=%d, got %d", id, gotID)
	}
}

func TestCatalog_AddDuplicateNameFails(t *testing.T) {
	c := New()
	c.Add(newTable("orders"))

	_, err := c.Add(newTable("orders"))
	var dup *dberrors.DuplicateObjectError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateObjectError, got %v", err)
	}
}

func TestCatalog_RemoveUnknownFails(t *testing.T) {
	c := New()
	err := c.Remove(42)
	var nf *dberrors.ObjectNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ObjectNotFoundError, got %v", err)
	}
}

func TestCatalog_RemoveReferencedTableFails(t *testing.T) {
	c := New()
	orders := newTable("orders")
	customers := newTable("customers")
	custID, _ := c.Add(customers)
	c.Add(orders)

	fk := &table.Constraint{
		Name:                    "fk_orders_customer",
		Kind:                    table.KindForeignKey,
		LocalCols:               []int{0},
		RefCols:                 []int{0},
		RefIndexOrdinal:         0,
		ReferencingIndexOrdinal: 0,
		Action:                  table.ActionRestrict,
	}
	if err := c.ResolveForeignKey(orders, "customers", fk); err != nil {
		t.Fatalf("resolve fk: %v", err)
	}

	err := c.Remove(custID)
	var inUse *dberrors.SchemaObjectInUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected SchemaObjectInUseError, got %v", err)
	}
}

func TestCatalog_ResolveForeignKeyUnknownTargetFails(t *testing.T) {
	c := New()
	orders := newTable("orders")
	c.Add(orders)

	fk := &table.Constraint{Name: "fk_missing", Kind: table.KindForeignKey}
	err := c.ResolveForeignKey(orders, "ghost", fk)
	var nf *dberrors.ObjectNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ObjectNotFoundError for unregistered target, got %v", err)
	}
}

func TestCatalog_ResolveForeignKeyWiresBothSides(t *testing.T) {
	c := New()
	orders := newTable("orders")
	customers := newTable("customers")
	c.Add(customers)
	c.Add(orders)

	fk := &table.Constraint{
		Name:            "fk_orders_customer",
		Kind:            table.KindForeignKey,
		RefIndexOrdinal: 0,
		LocalCols:       []int{0},
		RefCols:         []int{0},
	}
	if err := c.ResolveForeignKey(orders, "customers", fk); err != nil {
		t.Fatalf("resolve fk: %v", err)
	}

	if fk.Owner != orders {
		t.Fatal("expected fk.Owner set to orders")
	}
	if fk.RefTable != customers {
		t.Fatal("expected fk.RefTable resolved to customers")
	}
	if len(customers.ReferencedBy) != 1 || customers.ReferencedBy[0] != fk {
		t.Fatal("expected customers.ReferencedBy to list the new foreign key")
	}
}

func TestCatalog_Rename(t *testing.T) {
	c := New()
	tbl := newTable("staging_orders")
	id, _ := c.Add(tbl)

	if err := c.Rename(id, "orders"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if tbl.Name != "orders" {
		t.Fatalf("expected table.Name updated to orders, got %s", tbl.Name)
	}
	if _, ok := c.Lookup("staging_orders"); ok {
		t.Fatal("expected old name no longer resolvable")
	}
	got, ok := c.Lookup("orders")
	if !ok || got != tbl {
		t.Fatal("expected new name to resolve to the renamed table")
	}
}

func TestCatalog_RenameToExistingNameFails(t *testing.T) {
	c := New()
	c.Add(newTable("orders"))
	id, _ := c.Add(newTable("staging_orders"))

	err := c.Rename(id, "orders")
	var dup *dberrors.DuplicateObjectError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateObjectError, got %v", err)
	}
}

func TestCatalog_TablesSnapshot(t *testing.T) {
	c := New()
	c.Add(newTable("a"))
	c.Add(newTable("b"))

	tbls := c.Tables()
	if len(tbls) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tbls))
	}
}
