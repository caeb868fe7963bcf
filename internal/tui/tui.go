// Package tui is the interactive terminal surface over the synchronizer.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/todosync"
	"github.com/idilsaglam/cloudtodo/internal/ui"
)

// RemovalDelay is how long a deleted row shows its removal transition.
const RemovalDelay = 250 * time.Millisecond

// listItem adapts a todo to bubbles/list.Item.
type listItem struct {
	todo    model.Todo
	leaving bool
}

func (i listItem) FilterValue() string { return i.todo.Text }

// itemDelegate renders rows through ui.Row. Rows are two lines tall so
// that an image line fits.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 2 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	row := ui.NewRow(it.todo, index == m.Index(), it.leaving)
	out := row.Render()
	if row.Height() < d.Height() {
		out += "\n"
	}
	fmt.Fprint(w, out)
}

type mode int

const (
	browsing mode = iota
	adding
	picking
)

// action records which operation produced a change.
type action int

const (
	actLoad action = iota
	actCreate
	actDispatch
)

type changeMsg struct {
	from   action
	change todosync.Change
}

type detachMsg struct{ id string }

type pickedMsg struct {
	file *todosync.File
	err  error
}

// interactions is the single key → interaction table for rows.
var interactions = map[string]todosync.Interaction{
	" ":      todosync.ToggleItem,
	"space":  todosync.ToggleItem,
	"enter":  todosync.ToggleItem,
	"x":      todosync.ToggleItem,
	"d":      todosync.DeleteItem,
	"delete": todosync.DeleteItem,
}

type Options struct {
	Sync    *todosync.Synchronizer
	Session *todosync.Session
	Status  *Status
	Title   string
}

type Model struct {
	sync   *todosync.Synchronizer
	sess   *todosync.Session
	status *Status
	title  string

	list list.Model
	ti   textinput.Model
	fp   filepicker.Model
	mode mode

	inflight      int
	width, height int
}

func New(opt Options) Model {
	title := opt.Title
	if title == "" {
		title = "Todos"
	}
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = title
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Muted
	l.Styles.PaginationStyle = ui.Current().Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")

	bindings := []key.Binding{
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "add with image")),
		key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
	l.AdditionalShortHelpKeys = func() []key.Binding { return bindings }
	l.AdditionalFullHelpKeys = func() []key.Binding { return bindings }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 500

	fp := filepicker.New()
	fp.AllowedTypes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	status := opt.Status
	if status == nil {
		status = NewStatus()
	}
	sess := opt.Session
	if sess == nil {
		sess = &todosync.Session{}
	}
	return Model{
		sync:   opt.Sync,
		sess:   sess,
		status: status,
		title:  title,
		list:   l,
		ti:     ti,
		fp:     fp,
	}
}

// Run starts the program and blocks until the user quits.
func Run(opt Options) error {
	_, err := tea.NewProgram(New(opt), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.run(actLoad, func(ctx context.Context) todosync.Change { return m.sync.Load(ctx) })
}

// run performs op off the UI goroutine; its change comes back as a message.
func (m *Model) run(from action, op func(ctx context.Context) todosync.Change) tea.Cmd {
	m.inflight++
	return func() tea.Msg {
		return changeMsg{from: from, change: op(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		var cmd tea.Cmd
		m.fp, cmd = m.fp.Update(msg)
		return m, cmd

	case changeMsg:
		return m.applyChange(msg)

	case detachMsg:
		if i := m.indexOf(msg.id); i >= 0 {
			m.list.RemoveItem(i)
		}
		m.refreshTitle()
		return m, nil

	case pickedMsg:
		m.mode = adding
		if msg.err != nil {
			m.status.Set(msg.err.Error())
		} else {
			m.sess.Select(msg.file)
		}
		return m, m.ti.Focus()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case adding:
			return m.updateAdding(msg)
		case picking:
			return m.updatePicking(msg)
		}
		return m.updateBrowsing(msg)
	}

	if m.mode == picking {
		var cmd tea.Cmd
		m.fp, cmd = m.fp.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	if m.mode == adding {
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) applyChange(msg changeMsg) (tea.Model, tea.Cmd) {
	if m.inflight > 0 {
		m.inflight--
	}
	ch := msg.change
	ch.Apply(listView{&m.list})

	switch {
	case msg.from == actCreate && ch.OK():
		m.ti.Reset()
		m.ti.Blur()
		m.mode = browsing
		m.list.Select(0)
	case ch.Kind == todosync.Remove:
		m.refreshTitle()
		id := ch.ID
		return m, tea.Tick(RemovalDelay, func(time.Time) tea.Msg { return detachMsg{id: id} })
	case ch.OK():
		m.status.Set("")
	}
	m.refreshTitle()
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	k := msg.String()
	if in, ok := interactions[k]; ok {
		it, ok := m.list.SelectedItem().(listItem)
		if !ok || it.leaving {
			return m, nil
		}
		todo := it.todo
		return m, m.run(actDispatch, func(ctx context.Context) todosync.Change {
			return m.sync.Dispatch(ctx, in, todo)
		})
	}

	switch k {
	case "q", "esc":
		if m.list.FilterState() == list.FilterApplied && k == "esc" {
			break
		}
		return m, tea.Quit
	case "a":
		m.mode = adding
		m.ti.SetValue(m.sess.Text())
		m.ti.CursorEnd()
		return m, m.ti.Focus()
	case "i":
		return m, m.startPicking()
	case "r":
		return m, m.run(actLoad, func(ctx context.Context) todosync.Change { return m.sync.Load(ctx) })
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.sess.SetText(m.ti.Value())
		if m.sess.Text() == "" {
			return m, nil
		}
		return m, m.run(actCreate, func(ctx context.Context) todosync.Change {
			return m.sync.Create(ctx, m.sess)
		})
	case "ctrl+o":
		m.sess.SetText(m.ti.Value())
		return m, m.startPicking()
	case "ctrl+x":
		m.sess.Select(nil)
		return m, nil
	case "esc":
		m.sess.SetText(m.ti.Value())
		m.ti.Blur()
		m.mode = browsing
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *Model) startPicking() tea.Cmd {
	m.ti.Blur()
	m.mode = picking
	return m.fp.Init()
}

func (m Model) updatePicking(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.mode = adding
		return m, m.ti.Focus()
	}
	var cmd tea.Cmd
	m.fp, cmd = m.fp.Update(msg)
	if ok, path := m.fp.DidSelectFile(msg); ok {
		return m, func() tea.Msg {
			f, err := todosync.LoadFile(path)
			return pickedMsg{file: f, err: err}
		}
	}
	if ok, path := m.fp.DidSelectDisabledFile(msg); ok {
		m.status.Set("not an image: " + path)
	}
	return m, cmd
}

func (m *Model) resize() {
	h := m.height - 4
	if m.mode != browsing {
		h -= 4
	}
	if h < 4 {
		h = 4
	}
	m.list.SetSize(m.width-4, h)
}

func (m *Model) refreshTitle() {
	var todos []model.Todo
	for _, it := range m.list.Items() {
		if li, ok := it.(listItem); ok && !li.leaving {
			todos = append(todos, li.todo)
		}
	}
	done, pending := model.Stats(todos)
	th := ui.Current()
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		m.title,
		th.Success.Render("✔"), done,
		th.Pending.Render("•"), pending,
		th.Accent.Render("Total"), len(todos),
	)
}

func (m Model) indexOf(id string) int {
	for i, it := range m.list.Items() {
		if li, ok := it.(listItem); ok && li.todo.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) View() string {
	th := ui.Current()
	var b strings.Builder

	switch m.mode {
	case picking:
		b.WriteString(th.Title.Render("Pick an image") + th.Muted.Render("  (esc to cancel)") + "\n\n")
		b.WriteString(m.fp.View())
		return ui.Frame(b.String())
	default:
		b.WriteString(m.list.View())
	}

	if m.mode == adding {
		title := "Add new todo"
		if f := m.sess.Selected(); f != nil {
			title += "  " + th.Accent.Render(th.SymImage+" "+f.Name) + th.Muted.Render(" (ctrl+x drops it)")
		} else {
			title += th.Muted.Render("  (ctrl+o attaches an image)")
		}
		bar := lipgloss.NewStyle().Border(th.Border).BorderForeground(th.BorderColor).Padding(0, 1)
		b.WriteString("\n" + bar.Render(title+"\n"+m.ti.View()))
	}

	if line := m.statusLine(); line != "" {
		b.WriteString("\n" + line)
	}
	return ui.Frame(b.String())
}

func (m Model) statusLine() string {
	th := ui.Current()
	var parts []string
	if m.inflight > 0 {
		parts = append(parts, th.Pending.Render(fmt.Sprintf("⟳ %d syncing", m.inflight)))
	}
	if s := m.status.Get(); s != "" {
		parts = append(parts, th.Error.Render("✖ "+s))
	}
	return strings.Join(parts, "  ")
}
