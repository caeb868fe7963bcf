// Package sqlstore is the backend's record store on SQLite via sqlx.
package sqlstore

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
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL CHECK (length(trim(text)) > 0),
	completed  BOOLEAN NOT NULL DEFAULT 0,
	image_url  TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos (created_at DESC);
`

const selectColumns = `SELECT id, text, completed, image_url, created_at FROM todos`

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to the database file at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", path+"?_loc=auto&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks the connection; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) List(ctx context.Context) ([]model.Todo, error) {
	todos := []model.Todo{}
	err := s.db.SelectContext(ctx, &todos, selectColumns+` ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("select todos: %w", err)
	}
	return todos, nil
}

func (s *Store) get(ctx context.Context, id string) (model.Todo, error) {
	var t model.Todo
	err := s.db.GetContext(ctx, &t, selectColumns+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, fmt.Errorf("todo %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Todo{}, fmt.Errorf("select todo %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) Insert(ctx context.Context, n model.NewTodo) (model.Todo, error) {
	t := model.Todo{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(n.Text),
		ImageURL:  n.ImageURL,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO todos (id, text, completed, image_url, created_at)
		 VALUES (:id, :text, :completed, :image_url, :created_at)`, t)
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return s.get(ctx, t.ID)
}

func (s *Store) Update(ctx context.Context, id string, p model.Patch) error {
	if p.Empty() {
		_, err := s.get(ctx, id)
		return err
	}
	var (
		sets []string
		args []any
	)
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *p.Completed)
	}
	if p.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, strings.TrimSpace(*p.Text))
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE todos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update todo %s: %w", id, err)
	}
	return affected(res, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return affected(res, id)
}

func affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("todo %s: %w", id, store.ErrNotFound)
	}
	return nil
}
