package jsonstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func TestList_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	todos, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(todos) != 0 {
		t.Errorf("len = %d, want 0", len(todos))
	}
}

func TestInsertListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		if _, err := s.Insert(ctx, model.NewTodo{Text: text}); err != nil {
			t.Fatalf("Insert %s: %v", text, err)
		}
	}
	todos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got string
	for _, td := range todos {
		got += td.Text
	}
	if got != "cba" {
		t.Errorf("order = %q, want cba", got)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("data file not written: %v", err)
	}
}

func TestUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	td, _ := s.Insert(ctx, model.NewTodo{Text: "x", ImageURL: model.StringPtr("file:///tmp/1-x.png")})

	if err := s.Update(ctx, td.ID, model.Patch{Completed: model.BoolPtr(true)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	todos, _ := s.List(ctx)
	if !todos[0].Completed || todos[0].Image() != "file:///tmp/1-x.png" {
		t.Errorf("after update = %+v", todos[0])
	}

	if err := s.Delete(ctx, td.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, td.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	if err := s.Update(ctx, td.ID, model.Patch{Completed: model.BoolPtr(false)}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
}

func TestCorruptFile(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(context.Background()); err == nil {
		t.Error("List accepted a corrupt file")
	}
}
