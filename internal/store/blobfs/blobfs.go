// Package blobfs stores blobs as files in one directory.
package blobfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/idilsaglam/cloudtodo/internal/store"
)

var ErrBadKey = errors.New("invalid blob key")

// Store writes each key to dir/key. Public URLs are baseURL + "/" + key.
type Store struct {
	dir     string
	baseURL string
}

// New creates dir if needed. An empty baseURL yields file:// URLs.
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}
	if baseURL == "" {
		baseURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return &Store{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *Store) Dir() string { return s.dir }

// ValidKey reports whether key is a single, non-hidden path segment.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ".") {
		return false
	}
	return !strings.ContainsAny(key, `/\`)
}

func (s *Store) Upload(ctx context.Context, key string, data []byte, opt store.UploadOptions) error {
	if !ValidKey(key) {
		return fmt.Errorf("%q: %w", key, ErrBadKey)
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if opt.Upsert {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	path := filepath.Join(s.dir, key)
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", key, store.ErrExists)
		}
		return fmt.Errorf("create blob: %w", err)
	}
	err = writeData(f, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// A partial blob would keep the key taken.
		_ = os.Remove(path)
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

var writeData = func(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + url.PathEscape(key)
}

// Remove deletes keys. Missing keys are not an error.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if !ValidKey(key) {
			errs = append(errs, fmt.Errorf("%q: %w", key, ErrBadKey))
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove blob: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Open returns the blob for reading. The caller closes it.
func (s *Store) Open(key string) (*os.File, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("%q: %w", key, ErrBadKey)
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}
