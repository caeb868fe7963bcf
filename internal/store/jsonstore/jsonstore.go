// Package jsonstore is a record store kept in a single JSON file.
// Human-readable and portable; used for offline mode.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/store"
)

const DataFileName = "todos.json"

// Store is safe for concurrent use within one process only.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a store backed by dir/todos.json. The file is created on first write.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, DataFileName), now: time.Now}
}

func (s *Store) Path() string { return s.path }

func (s *Store) load() ([]model.Todo, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var todos []model.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return todos, nil
}

func (s *Store) save(todos []model.Todo) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todos, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(todos, func(i, j int) bool { return todos[i].CreatedAt.After(todos[j].CreatedAt) })
	return todos, nil
}

func (s *Store) Insert(ctx context.Context, n model.NewTodo) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todos, err := s.load()
	if err != nil {
		return model.Todo{}, err
	}
	t := model.Todo{
		ID:        uuid.NewString(),
		Text:      n.Text,
		ImageURL:  n.ImageURL,
		CreatedAt: s.now().UTC(),
	}
	todos = append(todos, t)
	if err := s.save(todos); err != nil {
		return model.Todo{}, err
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, p model.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	todos, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return fmt.Errorf("todo %s: %w", id, store.ErrNotFound)
	}
	if p.Completed != nil {
		todos[i].Completed = *p.Completed
	}
	if p.Text != nil {
		todos[i].Text = *p.Text
	}
	return s.save(todos)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	todos, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return fmt.Errorf("todo %s: %w", id, store.ErrNotFound)
	}
	todos = append(todos[:i], todos[i+1:]...)
	return s.save(todos)
}

func indexOf(todos []model.Todo, id string) int {
	for i, t := range todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
