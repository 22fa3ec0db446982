package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("DB接続に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunner_Up(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/000002_add_column.up.sql":     {Data: []byte("ALTER TABLE items ADD COLUMN label TEXT;")},
		"migrations/000001_create_items.up.sql":   {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY);")},
		"migrations/000001_create_items.down.sql": {Data: []byte("DROP TABLE items;")},
		"migrations/README.md":                    {Data: []byte("ignored")},
	}
	db := openTestDB(t)
	r := NewRunner(db, fsys, "migrations", nil)
	ctx := context.Background()

	n, err := r.Up(ctx)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Up() = %d, want 2", n)
	}
	if _, err := db.Exec("INSERT INTO items (id, label) VALUES ('a', 'b')"); err != nil {
		t.Errorf("マイグレーション後のINSERTに失敗: %v", err)
	}

	n, err = r.Up(ctx)
	if err != nil {
		t.Fatalf("2回目のUp() error = %v", err)
	}
	if n != 0 {
		t.Errorf("2回目のUp() = %d, want 0", n)
	}
}

func TestRunner_UpRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/000001_broken.up.sql": {Data: []byte("CREATE TABLE;")},
	}
	db := openTestDB(t)

	if _, err := NewRunner(db, fsys, "m", nil).Up(context.Background()); err == nil {
		t.Fatal("Up() error = nil, want error")
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("COUNT に失敗: %v", err)
	}
	if count != 0 {
		t.Errorf("schema_migrations = %d行, want 0", count)
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	t.Run("バージョン順に並べる", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"d/000010_c.up.sql":  {Data: []byte("")},
			"d/000002_b.up.sql":  {Data: []byte("")},
			"d/noversion.up.sql": {Data: []byte("")},
		}
		got, err := Collect(fsys, "d")
		if err != nil {
			t.Fatalf("Collect() error = %v", err)
		}
		if len(got) != 2 || got[0].Version != 2 || got[1].Name != "c" || got[1].Path != "d/000010_c.up.sql" {
			t.Errorf("Collect() = %+v", got)
		}
	})

	t.Run("重複バージョンはエラー", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"d/000001_a.up.sql": {Data: []byte("")},
			"d/1_b.up.sql":      {Data: []byte("")},
		}
		if _, err := Collect(fsys, "d"); err == nil {
			t.Error("Collect() error = nil, want duplicate error")
		}
	})
}
