package model

import "time"

// Todo is a task record as stored by the record store.
// ID and CreatedAt are assigned by the store on insert.
type Todo struct {
	ID        string    `json:"id" db:"id"`
	Text      string    `json:"text" db:"text"`
	Completed bool      `json:"completed" db:"completed"`
	ImageURL  *string   `json:"image_url" db:"image_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasImage reports whether an image is attached.
func (t Todo) HasImage() bool { return t.ImageURL != nil && *t.ImageURL != "" }

// Image returns the image URL or "".
func (t Todo) Image() string {
	if t.ImageURL == nil {
		return ""
	}
	return *t.ImageURL
}

// NewTodo is the insert payload. The store fills in the rest.
type NewTodo struct {
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Completed *bool   `json:"completed,omitempty"`
	Text      *string `json:"text,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return p.Completed == nil && p.Text == nil }

// Stats counts done and pending todos.
func Stats(todos []Todo) (done, pending int) {
	for _, t := range todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
