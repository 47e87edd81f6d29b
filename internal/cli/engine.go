// Package cli wires cobra commands to a process-local dbengine.Engine.
// State lives only for the process's lifetime — no on-disk file I/O is
// implemented here, consistent with storage-file I/O primitives being
// treated as an external collaborator rather than something this
// engine owns.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloudfs/dbengine/internal/dbengine"
	"github.com/cloudfs/dbengine/internal/dbengine/config"
	"github.com/cloudfs/dbengine/internal/dbengine/logging"
)

var eng *dbengine.Engine

// getEngine lazily constructs the process-wide engine from configPath,
// or built-in defaults when it's empty.
func getEngine() (*dbengine.Engine, error) {
	if eng != nil {
		return eng, nil
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := logging.Discard
	if verbose {
		level = logging.Default
	}
	eng = dbengine.New(cfg, level("cli"))
	return eng, nil
}

// parseColumnSpec parses one "name:type[:flag...]" positional argument
// into a dbengine.ColumnDef. Recognized flags: pk, identity, notnull.
// type is "int" or "text" (optionally "text:N" is not supported here —
// width defaults to unbounded; use create-table's repeated args for
// multiple text columns of the same width).
func parseColumnSpec(spec string) (dbengine.ColumnDef, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 {
		return dbengine.ColumnDef{}, fmt.Errorf("invalid column spec %q: want name:type[:flag...]", spec)
	}

	col := dbengine.ColumnDef{Name: parts[0], Type: parts[1]}
	for _, flag := range parts[2:] {
		switch flag {
		case "pk":
			col.PrimaryKey = true
			col.NotNull = true
		case "identity":
			col.Identity = true
		case "notnull":
			col.NotNull = true
		default:
			return dbengine.ColumnDef{}, fmt.Errorf("invalid column spec %q: unknown flag %q", spec, flag)
		}
	}
	return col, nil
}

// RunCreateTable implements `create-table`.
func RunCreateTable(name string, colSpecs []string) error {
	e, err := getEngine()
	if err != nil {
		return err
	}

	cols := make([]dbengine.ColumnDef, len(colSpecs))
	for i, spec := range colSpecs {
		col, err := parseColumnSpec(spec)
		if err != nil {
			return err
		}
		cols[i] = col
	}

	if _, err := e.CreateTable(name, cols); err != nil {
		return err
	}
	fmt.Printf("table %q created with %d columns\n", name, len(cols))
	return nil
}

// RunCreatePersistentTable implements `create-persistent-table`,
// backing the new table with a disk-cached row store drawing its
// positions from the configured table-space allocator rather than
// create-table's pure in-memory store.
func RunCreatePersistentTable(name string, colSpecs []string) error {
	e, err := getEngine()
	if err != nil {
		return err
	}

	cols := make([]dbengine.ColumnDef, len(colSpecs))
	for i, spec := range colSpecs {
		col, err := parseColumnSpec(spec)
		if err != nil {
			return err
		}
		cols[i] = col
	}

	if _, err := e.CreatePersistentTable(name, cols); err != nil {
		return err
	}
	fmt.Printf("persistent table %q created with %d columns\n", name, len(cols))
	return nil
}

// parseJSONArray unmarshals text into a []any, converting JSON numbers
// to int64 where they carry no fractional part — this engine's simple
// column types are int/text, not float.
func parseJSONArray(text string) ([]any, error) {
	var raw []any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array %q: %w", text, err)
	}
	for i, v := range raw {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			raw[i] = int64(f)
		}
	}
	return raw, nil
}

// RunInsert implements `insert`.
func RunInsert(tableName, rowJSON string) error {
	e, err := getEngine()
	if err != nil {
		return err
	}
	t, ok := e.Catalog.Lookup(tableName)
	if !ok {
		return fmt.Errorf("no such table %q", tableName)
	}

	data, err := parseJSONArray(rowJSON)
	if err != nil {
		return err
	}
	if len(data) != len(t.Columns) {
		return fmt.Errorf("table %q has %d columns, got %d values", tableName, len(t.Columns), len(data))
	}

	sess := e.NewSession()
	row, err := t.InsertRow(sess, data)
	if err != nil {
		return err
	}
	e.Schemas.BumpGlobal()
	fmt.Printf("inserted row at position %d\n", row.Pos)
	return nil
}

// RunDelete implements `delete`, looking the row up by its primary-key
// value(s) and removing it via DeleteCascadingByKey — applying any
// CASCADE/SET NULL/SET DEFAULT referential actions the row's
// referencing foreign keys carry, transitively, before the row itself
// is removed.
func RunDelete(tableName, keyJSON string) error {
	e, err := getEngine()
	if err != nil {
		return err
	}
	t, ok := e.Catalog.Lookup(tableName)
	if !ok {
		return fmt.Errorf("no such table %q", tableName)
	}
	if len(t.Indexes) == 0 {
		return fmt.Errorf("table %q has no primary index", tableName)
	}

	key, err := parseJSONArray(keyJSON)
	if err != nil {
		return err
	}
	pkCols := t.Indexes[0].Columns()
	if len(key) != len(pkCols) {
		return fmt.Errorf("table %q primary key has %d columns, got %d values", tableName, len(pkCols), len(key))
	}

	data := make([]any, len(t.Columns))
	for i, c := range pkCols {
		data[c] = key[i]
	}

	sess := e.NewSession()
	if err := t.DeleteCascadingByKey(sess, data); err != nil {
		return err
	}
	e.Schemas.BumpGlobal()
	fmt.Printf("deleted row matching key %v from %q\n", key, tableName)
	return nil
}

// RunAddForeignKey implements `add-fk`, declaring a foreign key from
// ownerTable's comma-separated ownerCols to refTable's comma-separated
// refCols, enforced with the named ON DELETE action.
func RunAddForeignKey(constraintName, ownerTable, ownerColsCSV, refTable, refColsCSV, action string) error {
	e, err := getEngine()
	if err != nil {
		return err
	}

	ownerCols := strings.Split(ownerColsCSV, ",")
	refCols := strings.Split(refColsCSV, ",")
	if len(ownerCols) != len(refCols) {
		return fmt.Errorf("add-fk: %d owner columns but %d referenced columns", len(ownerCols), len(refCols))
	}

	if err := e.AddForeignKey(constraintName, ownerTable, ownerCols, refTable, refCols, action, nil); err != nil {
		return err
	}
	fmt.Printf("foreign key %q added: %s(%s) -> %s(%s) on delete %s\n",
		constraintName, ownerTable, ownerColsCSV, refTable, refColsCSV, action)
	return nil
}

// RunCompile implements `compile`.
func RunCompile(sql string) error {
	e, err := getEngine()
	if err != nil {
		return err
	}
	sess := e.NewSession()
	stmt, err := e.Stmts.Compile(sess, sql, nil, nil)
	if err != nil {
		return err
	}
	fmt.Printf("statement id=%d schema=%s compiledAt=%d\n", stmt.ID, stmt.SchemaName, stmt.CompileTimestamp)
	return nil
}

// RunStats implements `stats`.
func RunStats() error {
	e, err := getEngine()
	if err != nil {
		return err
	}

	tables := e.Catalog.Tables()
	fmt.Fprintf(os.Stdout, "tables: %d\n", len(tables))
	for _, t := range tables {
		fmt.Fprintf(os.Stdout, "  %-20s rows=%-8d indexes=%d constraints=%d pk=%s\n",
			t.Name, t.RowCount(), len(t.Indexes), len(t.Constraints), t.PrimaryKeyColumnNames())
	}
	fmt.Fprintf(os.Stdout, "statement cache: %d entries\n", e.Stmts.Len())
	fmt.Fprintf(os.Stdout, "global change timestamp: %d\n", e.Schemas.GlobalChangeTimestamp())
	fmt.Fprintf(os.Stdout, "schema change timestamp: %d\n", e.Schemas.SchemaChangeTimestamp())
	return nil
}

// RunSnapshot implements `snapshot`.
func RunSnapshot(tableName string) error {
	e, err := getEngine()
	if err != nil {
		return err
	}
	if e.Config.Snapshot.Path == "" {
		return fmt.Errorf("snapshot: config has no snapshot.path configured")
	}
	if err := e.SnapshotTable(tableName); err != nil {
		return err
	}
	fmt.Printf("wrote encrypted snapshot for table %q\n", tableName)
	return nil
}

