package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	for name, fsys := range map[string]fs.FS{"postgres": PostgresFS, "clickhouse": ClickhouseFS} {
		entries, err := fs.ReadDir(fsys, name)
		if err != nil {
			t.Fatalf("%s: read embedded dir: %v", name, err)
		}
		if len(entries) == 0 {
			t.Errorf("%s: no migrations embedded", name)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second; with a semicolon
CREATE TABLE b (y String DEFAULT 'a;b', z String DEFAULT 'it''s') ENGINE = Memory; -- trailing
INSERT INTO b VALUES ('c\\'d;')
`
	stmts, err := splitStatements(input)
	if err != nil {
		t.Fatalf("splitStatements: %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") || !strings.Contains(stmts[1], "'a;b'") {
		t.Errorf("unexpected second statement %q", stmts[1])
	}
	if !strings.Contains(stmts[1], "'it''s'") {
		t.Errorf("escaped quote lost in %q", stmts[1])
	}
	if stmts[2] != `INSERT INTO b VALUES ('c\\'d;')` {
		t.Errorf("unexpected third statement %q", stmts[2])
	}
}

func TestSplitStatements_UnterminatedString(t *testing.T) {
	if _, err := splitStatements(`SELECT 'open;`); err == nil {
		t.Error("expected error for unterminated literal")
	}
}

func TestClickhouseMigrationsSplitCleanly(t *testing.T) {
	data, err := fs.ReadFile(ClickhouseFS, "clickhouse/001_pattern_snapshots.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	stmts, err := splitStatements(string(data))
	if err != nil {
		t.Fatalf("split migration: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], "pattern_snapshots") {
		t.Errorf("unexpected statements %q", stmts)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/patterns")
	if err != nil || db != "patterns" {
		t.Errorf("expected patterns, got %q (%v)", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}
