// Package todosync keeps a rendered todo list consistent with the remote
// record and blob stores.
//
// Every operation makes its remote calls first and only then returns the
// Change the caller applies to its view. A failed operation returns the
// zero Change and hands the error to the Reporter; nothing is returned as
// an error because there is no caller above the user interaction.
package todosync

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/store"
)

// CacheControl is sent with every image upload.
const CacheControl = "3600"

// Synchronizer runs the four todo operations against the stores.
type Synchronizer struct {
	records  store.Records
	blobs    store.Blobs
	reporter Reporter
	now      func() time.Time
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithReporter sets where swallowed failures go. Defaults to LogReporter.
func WithReporter(r Reporter) Option {
	return func(s *Synchronizer) { s.reporter = r }
}

// WithClock overrides time.Now for blob key naming.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

func New(records store.Records, blobs store.Blobs, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		records:  records,
		blobs:    blobs,
		reporter: LogReporter{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load fetches every record, newest first.
func (s *Synchronizer) Load(ctx context.Context) Change {
	todos, err := s.records.List(ctx)
	if err != nil {
		s.reporter.Report(OpLoad, err)
		return Change{}
	}
	return Change{Kind: Replace, Todos: todos}
}

// Create inserts the session's text with its pending image, if any.
// Blank text is a no-op. A failed upload degrades to a text-only todo;
// a failed insert aborts and keeps the session intact.
func (s *Synchronizer) Create(ctx context.Context, sess *Session) Change {
	text := sess.Text()
	if text == "" {
		return Change{}
	}

	var imageURL *string
	f := sess.Selected()
	if f != nil {
		key := BlobKey(s.now(), f.Name)
		err := s.blobs.Upload(ctx, key, f.Data, store.UploadOptions{
			ContentType:  contentType(f.Name),
			CacheControl: CacheControl,
		})
		if err != nil {
			s.reporter.Report(OpUpload, fmt.Errorf("upload %s: %w", key, err))
		} else {
			imageURL = model.StringPtr(s.blobs.PublicURL(key))
		}
	}

	t, err := s.records.Insert(ctx, model.NewTodo{Text: text, ImageURL: imageURL})
	if err != nil {
		s.reporter.Report(OpInsert, err)
		return Change{}
	}
	sess.ClearIf(f)
	return Change{Kind: Prepend, Todo: t}
}

// Toggle sets the completed flag of id.
func (s *Synchronizer) Toggle(ctx context.Context, id string, completed bool) Change {
	if err := s.records.Update(ctx, id, model.Patch{Completed: &completed}); err != nil {
		s.reporter.Report(OpUpdate, fmt.Errorf("update %s: %w", id, err))
		return Change{}
	}
	return Change{Kind: SetCompleted, ID: id, Completed: completed}
}

// Delete removes the record id and, best effort, the image behind imageURL.
// The record deletion decides the outcome.
func (s *Synchronizer) Delete(ctx context.Context, id, imageURL string) Change {
	if imageURL != "" {
		key, err := KeyFromURL(imageURL)
		if err == nil {
			err = s.blobs.Remove(ctx, key)
		}
		if err != nil {
			s.reporter.Report(OpRemoveBlob, fmt.Errorf("remove image of %s: %w", id, err))
		}
	}
	if err := s.records.Delete(ctx, id); err != nil {
		s.reporter.Report(OpDelete, fmt.Errorf("delete %s: %w", id, err))
		return Change{}
	}
	return Change{Kind: Remove, ID: id}
}

// BlobKey names an upload: unix millis, a dash, then the file's base name.
// Two uploads of the same name in the same millisecond collide; the second
// one fails as the upload never overwrites.
func BlobKey(now time.Time, filename string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), filepath.Base(filename))
}

var errNoKey = errors.New("image url has no key")

// KeyFromURL returns the last path segment of a public blob URL.
func KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	key := path.Base(u.Path)
	if key == "." || key == "/" || key == "" {
		return "", errNoKey
	}
	return key, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
