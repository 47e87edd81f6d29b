package session

import (
	"io"
	"testing"

	"github.com/cloudfs/dbengine/internal/dbengine/logging"
	"github.com/cloudfs/dbengine/internal/rowindex"
	"github.com/cloudfs/dbengine/internal/rowstore"
	"github.com/cloudfs/dbengine/internal/table"
)

func discardLog() logging.Logger { return logging.New(io.Discard, "test") }

type intCollator struct{}

func (intCollator) Compare(a, b any) int {
	ai, _ := a.(int)
	bi, _ := b.(int)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func newPeopleTable(t *testing.T) *table.Table {
	t.Helper()
	cols := []table.Column{
		{Name: "id", Type: table.NewSimpleType("int", 0), NotNull: true, Identity: true},
		{Name: "name", Type: table.NewSimpleType("text", 0)},
	}
	store := rowstore.NewMemoryRowStore(1)
	tbl := table.NewTable("people", cols, store, discardLog())
	pk := rowindex.NewIndexTree(0, "people_pk", []int{0}, []rowindex.Collator{intCollator{}}, true, false)
	tbl.AddIndex(pk)
	tbl.Identity = table.NewIdentitySequence(1)
	tbl.IdentityColumn = 0
	return tbl
}

func TestSession_IDIsUniqueUUID(t *testing.T) {
	schemas := NewSchemaManager()
	s1 := New(schemas)
	s2 := New(schemas)
	if s1.ID() == "" {
		t.Fatal("expected a non-empty session id")
	}
	if s1.ID() == s2.ID() {
		t.Fatalf("expected distinct session ids, got %s twice", s1.ID())
	}
}

func TestSession_CurrentSchemaDefaultsToPublic(t *testing.T) {
	s := New(NewSchemaManager())
	if s.CurrentSchema() != "public" {
		t.Fatalf("expected default schema public, got %s", s.CurrentSchema())
	}
	s.SetCurrentSchema("reporting")
	if s.CurrentSchema() != "reporting" {
		t.Fatalf("expected schema reporting, got %s", s.CurrentSchema())
	}
}

func TestSchemaManager_BumpSchemaAdvancesBothClocks(t *testing.T) {
	sm := NewSchemaManager()
	if sm.GlobalChangeTimestamp() != 0 || sm.SchemaChangeTimestamp() != 0 {
		t.Fatal("expected both clocks to start at zero")
	}
	sm.BumpGlobal()
	if sm.GlobalChangeTimestamp() != 1 {
		t.Fatalf("expected global=1, got %d", sm.GlobalChangeTimestamp())
	}
	if sm.SchemaChangeTimestamp() != 0 {
		t.Fatalf("expected schema clock unaffected by BumpGlobal, got %d", sm.SchemaChangeTimestamp())
	}

	ts := sm.BumpSchema()
	if sm.GlobalChangeTimestamp() != 2 || sm.SchemaChangeTimestamp() != 2 {
		t.Fatalf("expected both clocks at 2 after BumpSchema, got global=%d schema=%d",
			sm.GlobalChangeTimestamp(), sm.SchemaChangeTimestamp())
	}
	if ts != 2 {
		t.Fatalf("expected BumpSchema to return 2, got %d", ts)
	}
}

func TestSession_InsertAndDeleteJournaling(t *testing.T) {
	tbl := newPeopleTable(t)
	s := New(NewSchemaManager())

	row, err := tbl.InsertRow(s, []any{nil, "ada"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	journal := s.Journal()
	if len(journal) != 1 || journal[0].Kind != ActionInsert || journal[0].Table != "people" {
		t.Fatalf("expected one insert action for people, got %+v", journal)
	}

	if err := tbl.DeleteNoCheck(s, row); err != nil {
		t.Fatalf("delete: %v", err)
	}

	journal = s.Journal()
	if len(journal) != 2 || journal[1].Kind != ActionDelete {
		t.Fatalf("expected insert then delete action, got %+v", journal)
	}

	s.ResetJournal()
	if len(s.Journal()) != 0 {
		t.Fatalf("expected empty journal after reset, got %+v", s.Journal())
	}
}

func TestSession_ReferentialIntegrityToggle(t *testing.T) {
	s := New(NewSchemaManager())
	if !s.ReferentialIntegrityEnabled() {
		t.Fatal("expected referential integrity enabled by default")
	}
	s.SetReferentialIntegrityEnabled(false)
	if s.ReferentialIntegrityEnabled() {
		t.Fatal("expected referential integrity disabled after toggle")
	}
}

func TestSession_GetRowStoreFallsBackToTableStore(t *testing.T) {
	tbl := newPeopleTable(t)
	s := New(NewSchemaManager())

	if s.GetRowStore(tbl) != tbl.Store {
		t.Fatal("expected GetRowStore to fall back to the table's own store when unbound")
	}

	overlay := rowstore.NewMemoryRowStore(1)
	s.BindRowStore(tbl, overlay)
	if s.GetRowStore(tbl) != overlay {
		t.Fatal("expected GetRowStore to return the bound overlay store")
	}
}

func TestSession_CompileStatementWrapsSQLAsExecutable(t *testing.T) {
	s := New(NewSchemaManager())
	stmt, err := s.CompileStatement("select 1", nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if stmt.Executable != "select 1" {
		t.Fatalf("expected executable to echo the sql text, got %v", stmt.Executable)
	}
}
