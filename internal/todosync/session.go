package todosync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File is an image picked for the next create.
type File struct {
	Name string
	Data []byte
}

// LoadFile reads path into a File named after its base name.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &File{Name: filepath.Base(path), Data: b}, nil
}

// Session holds the input state of one UI surface: the text being typed
// and at most one pending file. Safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	text string
	file *File
}

func (s *Session) SetText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// Text returns the trimmed input text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.text)
}

// Select replaces the pending file. nil clears it.
func (s *Session) Select(f *File) {
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
}

func (s *Session) Selected() *File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Clear drops both the text and the pending file.
func (s *Session) Clear() {
	s.mu.Lock()
	s.text = ""
	s.file = nil
	s.mu.Unlock()
}

// ClearIf drops the text, and the pending file only while it is still f.
// A file selected after f was submitted stays pending.
func (s *Session) ClearIf(f *File) {
	s.mu.Lock()
	s.text = ""
	if s.file == f {
		s.file = nil
	}
	s.mu.Unlock()
}
