package tui

import (
	"sync"

	"github.com/charmbracelet/bubbles/list"

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/todosync"
)

// listView lets a todosync.Change patch the bubbles list. Remove only
// marks the row; the model detaches it after the removal transition.
type listView struct {
	l *list.Model
}

func (v listView) Replace(todos []model.Todo) {
	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, listItem{todo: t})
	}
	v.l.SetItems(items)
}

func (v listView) Prepend(t model.Todo) {
	v.l.InsertItem(0, listItem{todo: t})
}

func (v listView) SetCompleted(id string, completed bool) {
	v.update(id, func(it *listItem) { it.todo.Completed = completed })
}

func (v listView) Remove(id string) {
	v.update(id, func(it *listItem) { it.leaving = true })
}

func (v listView) update(id string, f func(*listItem)) {
	for i, it := range v.l.Items() {
		if li, ok := it.(listItem); ok && li.todo.ID == id {
			f(&li)
			v.l.SetItem(i, li)
			return
		}
	}
}

// Status holds the last failure reported by the synchronizer so the UI
// can show it. It is a todosync.Reporter.
type Status struct {
	mu   sync.Mutex
	text string
}

func NewStatus() *Status { return &Status{} }

func (s *Status) Report(op todosync.Op, err error) {
	s.Set(op.String() + ": " + err.Error())
}

func (s *Status) Set(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

func (s *Status) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}
