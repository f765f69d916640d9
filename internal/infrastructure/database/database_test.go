package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "var", "lib", "cyfral", "journal.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if _, err := db.ExecContext(context.Background(), "CREATE TABLE t (x INTEGER)"); err != nil {
			t.Fatalf("ExecContext() error = %v", err)
		}
		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("database file missing: %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Open(Config{})
		if !errors.Is(err, ErrNoPath) {
			t.Errorf("Open() error = %v, want ErrNoPath", err)
		}
	})
}

func TestDSN(t *testing.T) {
	got := dsn(Config{Path: "/tmp/j.db", BusyTimeout: 5})
	if !strings.Contains(got, "_busy_timeout=5000") {
		t.Errorf("dsn() = %q, want busy timeout in milliseconds", got)
	}
	if strings.Contains(got, "WAL") {
		t.Errorf("dsn() = %q, WAL should be off", got)
	}

	got = dsn(Config{Path: "/tmp/j.db", WALMode: true})
	if !strings.Contains(got, "_journal_mode=WAL") {
		t.Errorf("dsn() = %q, want WAL journal mode", got)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close should fail")
	}

	var nilDB *DB
	if err := nilDB.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestQueryContext(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE doors (name TEXT NOT NULL)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, name := range []string{"porch", "gate"} {
		if _, err := db.ExecContext(ctx, "INSERT INTO doors (name) VALUES (?)", name); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}

	rows, err := db.QueryContext(ctx, "SELECT name FROM doors ORDER BY name")
	if err != nil {
		t.Fatalf("QueryContext() error = %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		names = append(names, n)
	}
	if len(names) != 2 || names[0] != "gate" || names[1] != "porch" {
		t.Errorf("names = %v, want [gate porch]", names)
	}

	if _, err := db.QueryContext(ctx, "SELECT * FROM missing"); err == nil {
		t.Error("QueryContext() on missing table should fail")
	}
}

func TestBeginTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE counter (n INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO counter (n) VALUES (1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO counter (n) VALUES (2)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	var count, sum int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*), SUM(n) FROM counter").Scan(&count, &sum); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 || sum != 2 {
		t.Errorf("count=%d sum=%d, want only the committed row", count, sum)
	}
}
