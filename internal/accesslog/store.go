package accesslog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Entry 是一条访问记录。
type Entry struct {
	PackageName string
	Version     string
	AccessTime  time.Time
}

// Writer 抽象访问记录的持久化，便于测试替换。
type Writer interface {
	Insert(ctx context.Context, entry Entry) error
}

// SQLiteStore 把访问记录写入单文件 SQLite 数据库。
type SQLiteStore struct {
	db            *sql.DB
	schemaVersion uint
}

var _ Writer = (*SQLiteStore)(nil)

// OpenSQLite 打开（必要时创建）数据库文件并执行迁移。
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database at %q: %w", path, err)
	}
	// 单连接避免 "database is locked"。
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database at %q: %w", path, err)
	}

	version, err := Migrate(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, schemaVersion: version}, nil
}

// SchemaVersion 返回迁移后的 schema 版本。
func (s *SQLiteStore) SchemaVersion() uint {
	return s.schemaVersion
}

// Insert 追加一条访问记录，AccessTime 为零值时使用当前时间。
func (s *SQLiteStore) Insert(ctx context.Context, entry Entry) error {
	now := time.Now().UTC()
	accessTime := entry.AccessTime
	if accessTime.IsZero() {
		accessTime = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO AccessLogs (packageName, version, accessTime, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?)
	`, entry.PackageName, entry.Version, accessTime.UTC(), now, now)
	if err != nil {
		return &PersistenceError{Entry: entry, Err: err}
	}
	return nil
}

// Count 返回记录总数，/-/status 会输出该值。
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM AccessLogs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count access logs: %w", err)
	}
	return n, nil
}

// Close 关闭数据库连接。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PersistenceError 表示访问记录写入失败，只会被记录日志，不会传递给 HTTP 响应。
type PersistenceError struct {
	Entry Entry
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist access log %s@%s: %v", e.Entry.PackageName, e.Entry.Version, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
