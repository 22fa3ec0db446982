// Package preference はローカルに保存する利用者設定を管理する。
// ログイン状態を維持する場合はリフレッシュトークンのCookieも保存するが、アクセストークンは保存しない。
package preference

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nao1215/technotes/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// KeyPersist はログイン状態を維持するかどうかの設定キー。
const KeyPersist = "persist"

// Store はSQLiteに保存された設定。
type Store struct {
	db *sql.DB
}

// Open はpathのSQLiteデータベースを開き、スキーマを適用する。
// ":memory:" を指定するとメモリ上に作成する。
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("設定データベースのオープンに失敗: %w", err)
	}
	// modernc sqliteは接続ごとに別のメモリDBを持つため1本に絞る
	db.SetMaxOpenConns(1)

	if _, err := migration.NewRunner(db, migrationsFS, "migrations", logger).Up(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close はデータベースを閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Get はkeyの値を返す。未設定の場合はokがfalseになる。
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("設定 %s の取得に失敗: %w", key, err)
	}
	return value, true, nil
}

// Set はkeyに値を保存する。
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("設定 %s の保存に失敗: %w", key, err)
	}
	return nil
}

// Persist はログイン状態を維持する設定を返す。未設定の場合はfalse。
func (s *Store) Persist(ctx context.Context) (bool, error) {
	v, ok, err := s.Get(ctx, KeyPersist)
	if err != nil || !ok {
		return false, err
	}
	persist, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("設定 %s の値が不正です: %q", KeyPersist, v)
	}
	return persist, nil
}

// SetPersist はログイン状態を維持する設定を保存する。
func (s *Store) SetPersist(ctx context.Context, persist bool) error {
	return s.Set(ctx, KeyPersist, strconv.FormatBool(persist))
}
