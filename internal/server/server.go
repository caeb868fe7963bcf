// Package server exposes a record store and a blob store over the REST
// subset the client speaks.
package server

import (
	"context"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/idilsaglam/cloudtodo/internal/store"
)

// Blobs is a blob store that can also be read back for public serving.
type Blobs interface {
	store.Blobs
	Open(key string) (*os.File, error)
}

// Pinger is implemented by record stores with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Table        string
	Bucket       string
	Secret       []byte
	MaxUpload    int64  // bytes
	CacheControl string // for public blobs, e.g. "max-age=3600"
	Logger       *log.Logger
}

type Server struct {
	records store.Records
	blobs   Blobs
	opt     Options
	log     *log.Logger
}

func New(records store.Records, blobs Blobs, opt Options) *Server {
	if opt.Table == "" {
		opt.Table = "todos"
	}
	if opt.Bucket == "" {
		opt.Bucket = "images"
	}
	if opt.MaxUpload <= 0 {
		opt.MaxUpload = 5 << 20
	}
	if opt.CacheControl == "" {
		opt.CacheControl = "max-age=3600"
	}
	l := opt.Logger
	if l == nil {
		l = log.Default()
	}
	return &Server{records: records, blobs: blobs, opt: opt, log: l}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	// Public blob reads need no key.
	r.HandleFunc("/storage/v1/object/public/{bucket}/{key}", s.serveBlob).Methods(http.MethodGet, http.MethodHead)

	rest := r.PathPrefix("/rest/v1").Subrouter()
	rest.Use(s.requireKey)
	rest.HandleFunc("/{table}", s.listTodos).Methods(http.MethodGet)
	rest.HandleFunc("/{table}", s.insertTodo).Methods(http.MethodPost)
	rest.HandleFunc("/{table}", s.updateTodo).Methods(http.MethodPatch)
	rest.HandleFunc("/{table}", s.deleteTodo).Methods(http.MethodDelete)

	objects := r.PathPrefix("/storage/v1/object").Subrouter()
	objects.Use(s.requireKey)
	objects.HandleFunc("/{bucket}/{key}", s.uploadBlob).Methods(http.MethodPost, http.MethodPut)
	objects.HandleFunc("/{bucket}", s.removeBlobs).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.records.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.log.Error("health check failed", "err", err)
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
