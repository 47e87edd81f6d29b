package rowstore

import (
	"path/filepath"
	"testing"
)

func TestSQLCipherPersister_PersistAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	p, err := OpenSQLCipherPersister(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	row := NewRow(7, []any{int64(7), "alice"}, 0)
	if err := p.Persist(row.Pos, row); err != nil {
		t.Fatalf("persist: %v", err)
	}

	got, err := p.Load(7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected a row back")
	}
	if got.Pos != 7 || got.Data[1] != "alice" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestSQLCipherPersister_LoadMissingReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	p, err := OpenSQLCipherPersister(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	got, err := p.Load(99)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil row for missing position, got %+v", got)
	}
}

func TestSQLCipherPersister_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	p, err := OpenSQLCipherPersister(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	row := NewRow(1, []any{int64(1)}, 0)
	if err := p.Persist(row.Pos, row); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := p.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := p.Load(1)
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if got != nil {
		t.Fatal("expected row gone after delete")
	}
}

func TestSQLCipherPersister_PersistOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	p, err := OpenSQLCipherPersister(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	first := NewRow(3, []any{int64(3), "old"}, 0)
	second := NewRow(3, []any{int64(3), "new"}, 0)
	if err := p.Persist(first.Pos, first); err != nil {
		t.Fatalf("persist first: %v", err)
	}
	if err := p.Persist(second.Pos, second); err != nil {
		t.Fatalf("persist second: %v", err)
	}

	got, err := p.Load(3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Data[1] != "new" {
		t.Fatalf("expected overwritten value, got %+v", got.Data)
	}
}

func TestOpenSQLCipherPersister_WrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	p, err := OpenSQLCipherPersister(path, "correct horse")
	if err != nil {
		t.Fatalf("open with passphrase: %v", err)
	}
	row := NewRow(1, []any{int64(1)}, 0)
	if err := p.Persist(row.Pos, row); err != nil {
		t.Fatalf("persist: %v", err)
	}
	p.Close()

	if _, err := OpenSQLCipherPersister(path, "wrong passphrase"); err == nil {
		t.Fatal("expected an error reopening an encrypted snapshot with the wrong passphrase")
	}
}
