package todosync

import (
	"context"

	"github.com/idilsaglam/cloudtodo/internal/model"
)

// Interaction is a user action on a rendered item.
type Interaction int

const (
	ToggleItem Interaction = iota + 1 // activate the item body
	DeleteItem                        // activate the delete affordance
)

func (i Interaction) String() string {
	switch i {
	case ToggleItem:
		return "toggle"
	case DeleteItem:
		return "delete"
	default:
		return "unknown"
	}
}

// Dispatch maps an interaction on item, as currently rendered, to its
// operation. Toggle asks for the inverse of the rendered state.
func (s *Synchronizer) Dispatch(ctx context.Context, in Interaction, item model.Todo) Change {
	switch in {
	case ToggleItem:
		return s.Toggle(ctx, item.ID, !item.Completed)
	case DeleteItem:
		return s.Delete(ctx, item.ID, item.Image())
	default:
		return Change{}
	}
}
