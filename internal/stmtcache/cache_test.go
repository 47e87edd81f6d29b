package stmtcache

import "testing"

// fakeSession is a minimal SessionHook used to drive StatementCache
// without a real compiler or schema manager.
type fakeSession struct {
	schema      string
	globalTS    int64
	schemaTS    int64
	compileErr  error
	compileHits int
}

func (s *fakeSession) CurrentSchema() string        { return s.schema }
func (s *fakeSession) SetCurrentSchema(name string)  { s.schema = name }
func (s *fakeSession) GlobalChangeTimestamp() int64  { return s.globalTS }
func (s *fakeSession) SchemaChangeTimestamp() int64  { return s.schemaTS }

func (s *fakeSession) CompileStatement(sql string, resultProperties any) (*Statement, error) {
	s.compileHits++
	if s.compileErr != nil {
		return nil, s.compileErr
	}
	return &Statement{
		CompileTimestamp: s.globalTS,
		ResultProperties: resultProperties,
		Executable:       "exec:" + sql,
	}, nil
}

func TestCompile_CachesBySchemaAndSQL(t *testing.T) {
	c := New()
	sess := &fakeSession{schema: "public", globalTS: 1, schemaTS: 0}

	stmt1, err := c.Compile(sess, "select 1", nil, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if sess.compileHits != 1 {
		t.Fatalf("expected 1 compile, got %d", sess.compileHits)
	}

	stmt2, err := c.Compile(sess, "select 1", nil, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if sess.compileHits != 1 {
		t.Fatalf("expected cache hit, got %d compiles", sess.compileHits)
	}
	if stmt1.ID != stmt2.ID {
		t.Fatalf("expected same statement id, got %d and %d", stmt1.ID, stmt2.ID)
	}
}

func TestCompile_DifferentSchemasDoNotShare(t *testing.T) {
	c := New()
	sess := &fakeSession{schema: "a", globalTS: 1}

	if _, err := c.Compile(sess, "select 1", nil, nil); err != nil {
		t.Fatalf("compile: %v", err)
	}
	sess.SetCurrentSchema("b")
	if _, err := c.Compile(sess, "select 1", nil, nil); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if sess.compileHits != 2 {
		t.Fatalf("expected 2 compiles across schemas, got %d", sess.compileHits)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 cached statements, got %d", c.Len())
	}
}

func TestGetStatement_UnknownIDReturnsNil(t *testing.T) {
	c := New()
	sess := &fakeSession{schema: "public"}
	stmt, err := c.GetStatement(sess, 999)
	if err != nil {
		t.Fatalf("expected no error for unknown id, got %v", err)
	}
	if stmt != nil {
		t.Fatalf("expected nil statement for unknown id, got %+v", stmt)
	}
}

func TestGetStatement_StaleRecompilesUnderOriginalSchema(t *testing.T) {
	c := New()
	sess := &fakeSession{schema: "alpha", globalTS: 1, schemaTS: 0}

	stmt, err := c.Compile(sess, "select * from t", nil, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	// Simulate a schema change newer than the compile timestamp.
	sess.schemaTS = 2
	sess.globalTS = 3
	sess.SetCurrentSchema("beta") // caller's session has since moved schemas

	got, err := c.GetStatement(sess, stmt.ID)
	if err != nil {
		t.Fatalf("getStatement: %v", err)
	}
	if got == nil {
		t.Fatal("expected recompiled statement, got nil")
	}
	if got.SchemaName != "alpha" {
		t.Fatalf("expected statement recompiled under its own schema alpha, got %s", got.SchemaName)
	}
	if sess.CurrentSchema() != "beta" {
		t.Fatalf("expected session schema restored to beta, got %s", sess.CurrentSchema())
	}
	if sess.compileHits != 2 {
		t.Fatalf("expected a recompile, got %d total compiles", sess.compileHits)
	}
}

func TestGetStatement_FailedRecompileFreesEntry(t *testing.T) {
	c := New()
	sess := &fakeSession{schema: "public", globalTS: 1, schemaTS: 0}

	stmt, err := c.Compile(sess, "select 1", nil, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	sess.schemaTS = 5
	sess.compileErr = errBoom

	got, err := c.GetStatement(sess, stmt.ID)
	if err != nil {
		t.Fatalf("expected nil error on failed recompile, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil statement after failed recompile, got %+v", got)
	}
	if c.Len() != 0 {
		t.Fatalf("expected failed recompile to evict the stale entry, cache has %d entries", c.Len())
	}
}

func TestFreeStatement_NegativeOneIsNoop(t *testing.T) {
	c := New()
	c.FreeStatement(-1)
}

func TestReset_ClearsEverythingAndRewindsIDs(t *testing.T) {
	c := New()
	sess := &fakeSession{schema: "public", globalTS: 1}

	stmt1, _ := c.Compile(sess, "select 1", nil, nil)
	c.Compile(sess, "select 2", nil, nil)
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries before reset, got %d", c.Len())
	}

	c.Reset()
	if c.Len() != 0 {
		t.Fatalf("expected 0 entries after reset, got %d", c.Len())
	}

	stmt2, _ := c.Compile(sess, "select 1", nil, nil)
	if stmt2.ID != 0 {
		t.Fatalf("expected id assignment to restart at 0 after reset, got %d", stmt2.ID)
	}
	if stmt1.ID != 0 {
		t.Fatalf("sanity: first ever compiled statement should also have had id 0, got %d", stmt1.ID)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errBoom = fakeErr("compile failed")
