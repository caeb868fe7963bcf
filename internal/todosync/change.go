package todosync

import "github.com/idilsaglam/cloudtodo/internal/model"

// View is the rendered list. It holds no authoritative state.
type View interface {
	Replace(todos []model.Todo)
	Prepend(t model.Todo)
	SetCompleted(id string, completed bool)
	Remove(id string)
}

// ChangeKind says how a confirmed remote call patches the view.
type ChangeKind int

const (
	None ChangeKind = iota
	Replace
	Prepend
	SetCompleted
	Remove
)

func (k ChangeKind) String() string {
	switch k {
	case Replace:
		return "replace"
	case Prepend:
		return "prepend"
	case SetCompleted:
		return "set-completed"
	case Remove:
		return "remove"
	default:
		return "none"
	}
}

// Change is the local patch for one operation. The zero value changes nothing.
type Change struct {
	Kind      ChangeKind
	Todos     []model.Todo // Replace
	Todo      model.Todo   // Prepend
	ID        string       // SetCompleted, Remove
	Completed bool         // SetCompleted
}

// OK reports whether the operation reached the remote store successfully.
func (c Change) OK() bool { return c.Kind != None }

// Apply patches v.
func (c Change) Apply(v View) {
	switch c.Kind {
	case Replace:
		v.Replace(c.Todos)
	case Prepend:
		v.Prepend(c.Todo)
	case SetCompleted:
		v.SetCompleted(c.ID, c.Completed)
	case Remove:
		v.Remove(c.ID)
	}
}

// ListView is a plain in-memory View, head first.
type ListView struct {
	items []model.Todo
}

func (l *ListView) Replace(todos []model.Todo) {
	l.items = append(l.items[:0:0], todos...)
}

func (l *ListView) Prepend(t model.Todo) {
	l.items = append([]model.Todo{t}, l.items...)
}

func (l *ListView) SetCompleted(id string, completed bool) {
	if i := l.index(id); i >= 0 {
		l.items[i].Completed = completed
	}
}

func (l *ListView) Remove(id string) {
	if i := l.index(id); i >= 0 {
		l.items = append(l.items[:i], l.items[i+1:]...)
	}
}

// Items returns a copy of the rendered items, head first.
func (l *ListView) Items() []model.Todo {
	return append([]model.Todo(nil), l.items...)
}

func (l *ListView) Len() int { return len(l.items) }

// At returns the item at a 0-based position.
func (l *ListView) At(i int) (model.Todo, bool) {
	if i < 0 || i >= len(l.items) {
		return model.Todo{}, false
	}
	return l.items[i], true
}

func (l *ListView) Get(id string) (model.Todo, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return model.Todo{}, false
}

func (l *ListView) index(id string) int {
	for i, t := range l.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}
