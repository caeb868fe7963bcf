package todosync

import (
	"github.com/charmbracelet/log"
)

// Op names the step of an operation that failed.
type Op int

const (
	OpLoad       Op = iota // fetching the list
	OpUpload               // uploading an image; create continues text-only
	OpInsert               // inserting a record; create aborts
	OpUpdate               // toggling completion; toggle aborts
	OpRemoveBlob           // removing an image; delete continues
	OpDelete               // deleting a record; delete aborts
)

func (op Op) String() string {
	switch op {
	case OpLoad:
		return "load"
	case OpUpload:
		return "upload"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpRemoveBlob:
		return "remove-blob"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Fatal reports whether a failure at this step aborts the user action.
func (op Op) Fatal() bool { return op != OpUpload && op != OpRemoveBlob }

// Reporter receives every failure the synchronizer swallows.
type Reporter interface {
	Report(op Op, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(op Op, err error)

func (f ReporterFunc) Report(op Op, err error) { f(op, err) }

// MultiReporter fans a report out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) Report(op Op, err error) {
	for _, r := range m {
		if r != nil {
			r.Report(op, err)
		}
	}
}

// LogReporter logs failures and nothing else; the user sees no message.
type LogReporter struct {
	Logger *log.Logger
}

func (r LogReporter) Report(op Op, err error) {
	l := r.Logger
	if l == nil {
		l = log.Default()
	}
	if op.Fatal() {
		l.Error("operation failed", "op", op, "err", err)
		return
	}
	l.Warn("operation degraded", "op", op, "err", err)
}
