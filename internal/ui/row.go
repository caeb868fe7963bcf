package ui

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/idilsaglam/cloudtodo/internal/model"
)

const maxText = 80

// Row is the rendered form of one todo: indicator, text, an optional
// image line and the delete affordance.
type Row struct {
	ID        string
	Indicator string
	Text      string
	Image     string // image name, "" when none
	ImageURL  string
	Delete    string
	Completed bool
	Selected  bool
	Leaving   bool // playing the removal transition
}

func NewRow(t model.Todo, selected, leaving bool) Row {
	th := Current()
	r := Row{
		ID:        t.ID,
		Indicator: th.BoxUnchecked,
		Text:      truncate(t.Text, maxText),
		Delete:    th.SymDelete + " d",
		Completed: t.Completed,
		Selected:  selected,
		Leaving:   leaving,
	}
	if t.Completed {
		r.Indicator = th.BoxChecked
	}
	if t.HasImage() {
		r.ImageURL = t.Image()
		r.Image = imageName(r.ImageURL)
	}
	return r
}

// Height is the number of lines Render produces.
func (r Row) Height() int {
	if r.Image != "" {
		return 2
	}
	return 1
}

// Render returns the styled row; prefix marks the cursor.
func (r Row) Render() string {
	th := Current()

	box := th.Muted.Render(r.Indicator)
	text := r.Text
	if r.Completed {
		box = th.Success.Render(r.Indicator)
		text = th.Done.Render(text)
	}
	del := th.Muted.Render(r.Delete)
	if r.Leaving {
		box = th.Error.Render(th.SymDelete)
		text = th.Error.Render(r.Text) + " " + th.Muted.Render("removing…")
		del = ""
	}

	prefix := "  "
	if r.Selected {
		prefix = th.Selected.Render("> ")
	}
	line := fmt.Sprintf("%s%s %s", prefix, box, text)
	if del != "" {
		line += "  " + del
	}
	if r.Image == "" {
		return line
	}
	img := th.Accent.Render(th.SymImage+" "+r.Image) + " " + th.Muted.Render(r.ImageURL)
	return line + "\n    " + img
}

func imageName(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
