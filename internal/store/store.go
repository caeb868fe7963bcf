// Package store defines the two remote collaborators the client talks to:
// a record store holding todo rows and a blob store holding images.
package store

import (
	"context"
	"errors"

	"github.com/idilsaglam/cloudtodo/internal/model"
)

var (
	// ErrNotFound is returned when a record or blob does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned by a no-overwrite upload when the key is taken.
	ErrExists = errors.New("already exists")
)

// Records is a table of todo rows.
type Records interface {
	// List returns every row ordered by created_at, newest first.
	List(ctx context.Context) ([]model.Todo, error)
	// Insert stores a row and returns it with id and created_at assigned.
	Insert(ctx context.Context, t model.NewTodo) (model.Todo, error)
	// Update applies a partial update to the row with the given id.
	Update(ctx context.Context, id string, p model.Patch) error
	// Delete removes the row with the given id.
	Delete(ctx context.Context, id string) error
}

// UploadOptions tune a blob upload.
type UploadOptions struct {
	ContentType  string
	CacheControl string // seconds, e.g. "3600"
	Upsert       bool   // overwrite an existing key
}

// Blobs is an object store addressed by caller-chosen keys.
type Blobs interface {
	Upload(ctx context.Context, key string, data []byte, opt UploadOptions) error
	PublicURL(key string) string
	Remove(ctx context.Context, keys ...string) error
}
