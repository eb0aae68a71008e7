package upload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const pragmaJournalMode = "PRAGMA journal_mode=WAL;"

// ErrNotFound is returned by Get for unknown paths.
var ErrNotFound = errors.New("document not found")

// Store is a SQLite-backed Publisher. Publishing to an existing path
// replaces its content and keeps its id.
type Store struct {
	db *sql.DB
}

// Open initializes the store at path, which may also be ":memory:" or a
// "file:" DSN.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("upload store path is empty")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create upload data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(pragmaJournalMode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS published_documents (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    target TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate published_documents: %w", err)
	}
	return nil
}

func (s *Store) Publish(ctx context.Context, doc Document) error {
	path := strings.Trim(strings.TrimSpace(doc.Path), "/")
	if path == "" || strings.Contains(path, "..") {
		return publishError("UPLOAD_PATH_INVALID", "上传路径不合法", doc.Path, nil)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO published_documents (id, path, target, content, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    target = excluded.target,
    content = excluded.content,
    updated_at = excluded.updated_at`,
		uuid.NewString(), path, doc.Target, doc.Content, time.Now().UTC())
	if err != nil {
		return publishError("UPLOAD_FAILED", "保存发布文档失败", path, err)
	}
	return nil
}

// Get returns the document published under path.
func (s *Store) Get(ctx context.Context, path string) (Record, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, target, content, updated_at FROM published_documents WHERE path = ?`, path,
	).Scan(&rec.ID, &rec.Path, &rec.Target, &rec.Content, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query published document: %w", err)
	}
	return rec, nil
}
