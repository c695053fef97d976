package db

import "testing"

func TestRebindDollar(t *testing.T) {
	got := rebindDollar(`SELECT * FROM t WHERE a = ? AND b = '?' AND c IN (?, ?)`)
	want := `SELECT * FROM t WHERE a = $1 AND b = '?' AND c IN ($2, $3)`
	if got != want {
		t.Fatalf("rebindDollar:\n got %s\nwant %s", got, want)
	}
}

func TestRebind_SQLiteUnchanged(t *testing.T) {
	d := &DB{driver: DriverSQLite}
	q := `SELECT 1 WHERE a = ?`
	if got := d.Rebind(q); got != q {
		t.Fatalf("expected unchanged query, got %s", got)
	}
}

func TestSplitStatements(t *testing.T) {
	src := "-- comment\nCREATE TABLE a (id TEXT);\n\n-- another\nCREATE INDEX i ON a(id);\n"
	stmts := splitStatements(src)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id TEXT)" {
		t.Fatalf("unexpected first statement %q", stmts[0])
	}
}
