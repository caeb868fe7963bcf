package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/cloudtodo/internal/auth"
	"github.com/idilsaglam/cloudtodo/internal/config"
	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/todosync"
	"github.com/idilsaglam/cloudtodo/internal/tui"
	"github.com/idilsaglam/cloudtodo/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group  bool // list grouped by pending/done
	Config *config.Client
	Logger *log.Logger
	Stdin  io.Reader // for auth login; defaults to os.Stdin
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	if opt.Config == nil {
		cfg, err := config.ReadClient()
		if err != nil {
			ui.Fail("config: " + err.Error())
			return 2
		}
		opt.Config = cfg
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	r := &runner{opt: opt, status: tui.NewStatus()}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "env":
		fmt.Println(config.Usage())
		return 0

	case "ls":
		return r.doList()

	case "tui":
		return r.doTUI()

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		image := fs.String("image", "", "attach an image file")
		if err := fs.Parse(a); err != nil || fs.NArg() == 0 {
			ui.Fail("usage: todo add [-image PATH] <text...>")
			return 2
		}
		return r.doAdd(strings.Join(fs.Args(), " "), *image)

	case "done", "rm":
		if len(a) != 1 {
			ui.Fail("usage: todo " + cmd + " <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(cmd + ": not a number: " + a[0])
			return 2
		}
		in := todosync.ToggleItem
		if cmd == "rm" {
			in = todosync.DeleteItem
		}
		return r.doInteract(n, in)

	case "auth":
		if len(a) == 0 {
			ui.Fail("usage: todo auth <login|logout|status|whoami>")
			return 2
		}
		switch a[0] {
		case "login":
			return r.doAuthLogin()
		case "logout":
			return r.doAuthLogout()
		case "status":
			return r.doAuthStatus()
		case "whoami":
			return r.doAuthWhoAmI()
		default:
			ui.Fail("usage: todo auth <login|logout|status|whoami>")
			return 2
		}
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(os.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Printf(`todo - a small synced todo list

Usage:
  todo [-group] <subcommand> [args]

Subcommands:
  ls                          List todos, newest first
  tui                         Interactive list
  add [-image PATH] <text...> Add a todo, optionally with an image
  done <index>                Toggle done for the todo at 1-based index
  rm <index>                  Delete the todo at 1-based index (and its image)
  auth <login|logout|status|whoami>   API key handling
  env                         Describe the environment variables

Examples:
  todo add "Buy milk"
  todo add -image cat.png "Feed the cat"
  todo ls
  todo done 2
  todo rm 3
`)
}

type runner struct {
	opt    Options
	status *tui.Status
}

func (r *runner) sync() (*todosync.Synchronizer, int) {
	reporter := todosync.MultiReporter{todosync.LogReporter{Logger: r.opt.Logger}, r.status}
	s, err := openSync(r.opt.Config, todosync.WithReporter(reporter))
	if err != nil {
		ui.Fail(err.Error())
		if err == errNoKey {
			return nil, 2
		}
		return nil, 1
	}
	return s, 0
}

// failed prints the reason of the last swallowed failure.
func (r *runner) failed(what string) int {
	msg := what
	if s := r.status.Get(); s != "" {
		msg += ": " + s
	}
	ui.Fail(msg)
	return 1
}

func (r *runner) load(ctx context.Context, s *todosync.Synchronizer) (*todosync.ListView, bool) {
	ch := s.Load(ctx)
	if !ch.OK() {
		return nil, false
	}
	v := &todosync.ListView{}
	ch.Apply(v)
	return v, true
}

// -------------- subcommand impls ----------------

func (r *runner) doList() int {
	s, code := r.sync()
	if s == nil {
		return code
	}
	v, ok := r.load(context.Background(), s)
	if !ok {
		return r.failed("load")
	}
	items := v.Items()

	th := ui.Current()
	d, p := model.Stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		th.Title.Render("Todos"),
		th.Success.Render("✔"), d,
		th.Pending.Render("•"), p,
		th.Accent.Render("Total"), len(items),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, th.Muted.Render(ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if r.opt.Group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, th.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(lines)
	return 0
}

// tuiLogger keeps log lines off the terminal while the TUI owns it. The
// status line shows failures instead; a configured log file still gets them.
func tuiLogger(opt Options) *log.Logger {
	if opt.Config.Log.File != "" {
		return opt.Logger
	}
	return log.New(io.Discard)
}

func (r *runner) doTUI() int {
	r.opt.Logger = tuiLogger(r.opt)
	s, code := r.sync()
	if s == nil {
		return code
	}
	err := tui.Run(tui.Options{
		Sync:    s,
		Session: &todosync.Session{},
		Status:  r.status,
	})
	if err != nil {
		ui.Fail("tui: " + err.Error())
		return 1
	}
	return 0
}

func (r *runner) doAdd(text, image string) int {
	sess := &todosync.Session{}
	sess.SetText(text)
	if sess.Text() == "" {
		ui.Fail("add: empty text")
		return 2
	}
	if image != "" {
		f, err := todosync.LoadFile(image)
		if err != nil {
			ui.Fail("add: " + err.Error())
			return 2
		}
		sess.Select(f)
	}

	s, code := r.sync()
	if s == nil {
		return code
	}
	ch := s.Create(context.Background(), sess)
	if !ch.OK() {
		return r.failed("add")
	}
	if image != "" && !ch.Todo.HasImage() {
		ui.Hint("image upload failed, saved without it")
	}
	ui.OK("added")
	return 0
}

// doInteract acts on the todo at a 1-based index of the current list.
func (r *runner) doInteract(userIndex int, in todosync.Interaction) int {
	s, code := r.sync()
	if s == nil {
		return code
	}
	ctx := context.Background()
	v, ok := r.load(ctx, s)
	if !ok {
		return r.failed("load")
	}
	if userIndex < 1 || userIndex > v.Len() {
		ui.Fail(fmt.Sprintf("index out of range: have %d, got %d", v.Len(), userIndex))
		ui.Hint("Hint: run `todo ls` to see valid indexes")
		return 2
	}
	item, _ := v.At(userIndex - 1)
	ch := s.Dispatch(ctx, in, item)
	if !ch.OK() {
		return r.failed(in.String())
	}
	if in == todosync.DeleteItem {
		ui.OK("removed")
	} else {
		ui.OK("toggled")
	}
	return 0
}

func (r *runner) doAuthLogin() int {
	in := r.opt.Stdin
	if in == nil {
		in = os.Stdin
	}
	fmt.Print("Paste your API key: ")
	token, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || token == "") {
		ui.Fail("read key: " + err.Error())
		return 1
	}
	if err := SetToken(token); err != nil {
		ui.Fail("save key: " + err.Error())
		return 1
	}
	ui.OK("logged in")
	return 0
}

func (r *runner) doAuthLogout() int {
	ti, _ := GetToken(r.opt.Config.API.Key)
	if ti != nil && ti.Source == "env" {
		ui.OK("key is provided by TODO_API_KEY env var (nothing to delete)")
		return 0
	}
	if err := DeleteToken(); err != nil {
		ui.Fail("logout: " + err.Error())
		return 1
	}
	ui.OK("logged out")
	return 0
}

func (r *runner) doAuthStatus() int {
	ti, _ := GetToken(r.opt.Config.API.Key)
	if ti == nil {
		fmt.Println(ui.Current().Muted.Render("not logged in"))
		fmt.Println("Run: todo auth login")
		return 0
	}
	fmt.Printf("source: %s\n", ti.Source)
	if ti.ExpiresAt != nil {
		fmt.Printf("expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Println("expires: (never)")
	}
	fmt.Println("env override: TODO_API_KEY")
	return 0
}

// whoami decodes the key's claims locally; the server decides what they are worth.
func (r *runner) doAuthWhoAmI() int {
	ti, _ := GetToken(r.opt.Config.API.Key)
	if ti == nil {
		ui.Fail("not logged in. Run: todo auth login")
		return 2
	}
	c, err := auth.Inspect(ti.Token)
	if err != nil {
		fmt.Println("Opaque key (cannot introspect locally).")
		fmt.Println("source:", ti.Source)
		return 0
	}
	fmt.Println("role:", c.Role)
	if c.Subject != "" {
		fmt.Println("subject:", c.Subject)
	}
	if c.IssuedAt != nil {
		fmt.Println("issued:", c.IssuedAt.UTC().Format(time.RFC3339))
	}
	if c.ExpiresAt != nil {
		fmt.Println("expires:", c.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Println("source:", ti.Source)
	return 0
}

// -------------- rendering helpers --------------

func flatLines(items []model.Todo) []string {
	if len(items) == 0 {
		return []string{ui.Current().Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		out = append(out, todoLine(i+1, it))
	}
	return out
}

func todoLine(index int, it model.Todo) string {
	idx := ui.Current().Muted.Render(fmt.Sprintf("%2d.", index))
	row := ui.NewRow(it, false, false).Render()
	return idx + " " + strings.ReplaceAll(row, "\n", "\n    ")
}

// groupLines keeps each todo's list index so done/rm still line up.
func groupLines(items []model.Todo) []string {
	th := ui.Current()
	var pend, done []string
	for i, it := range items {
		line := todoLine(i+1, it)
		if it.Completed {
			done = append(done, line)
		} else {
			pend = append(pend, line)
		}
	}
	var lines []string
	lines = append(lines, th.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, th.Muted.Render("(none)"))
	} else {
		lines = append(lines, pend...)
	}
	lines = append(lines, "")
	lines = append(lines, th.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, th.Muted.Render("(none)"))
	} else {
		lines = append(lines, done...)
	}
	return lines
}
