package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/idilsaglam/cloudtodo/internal/model"
)

const maxJSONBody = 1 << 20

// checkTable answers 404 for any table but the configured one.
func (s *Server) checkTable(w http.ResponseWriter, r *http.Request) bool {
	table, err := url.PathUnescape(mux.Vars(r)["table"])
	if err != nil || table != s.opt.Table {
		respondError(w, http.StatusNotFound, "relation does not exist")
		return false
	}
	return true
}

// idFilter reads the row filter ?id=eq.<id>.
func idFilter(r *http.Request) (string, bool) {
	v := r.URL.Query().Get("id")
	id, ok := strings.CutPrefix(v, "eq.")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	if !s.checkTable(w, r) {
		return
	}
	if order := r.URL.Query().Get("order"); order != "" && order != "created_at.desc" {
		respondError(w, http.StatusBadRequest, "unsupported order "+order)
		return
	}
	todos, err := s.records.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, todos)
}

// insertTodo accepts one object or an array of objects and answers with
// the stored rows.
func (s *Server) insertTodo(w http.ResponseWriter, r *http.Request) {
	if !s.checkTable(w, r) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	var batch []model.NewTodo
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		err = json.Unmarshal(body, &batch)
	} else {
		var one model.NewTodo
		err = json.Unmarshal(body, &one)
		batch = []model.NewTodo{one}
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if len(batch) == 0 {
		respondError(w, http.StatusBadRequest, "nothing to insert")
		return
	}
	for _, n := range batch {
		if strings.TrimSpace(n.Text) == "" {
			respondError(w, http.StatusBadRequest, "text must not be empty")
			return
		}
	}

	rows := make([]model.Todo, 0, len(batch))
	for _, n := range batch {
		t, err := s.records.Insert(r.Context(), n)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		rows = append(rows, t)
	}
	s.log.Info("inserted todos", "count", len(rows), "role", RoleFrom(r.Context()))
	respondJSON(w, http.StatusCreated, rows)
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	if !s.checkTable(w, r) {
		return
	}
	id, ok := idFilter(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "update needs an id=eq.<id> filter")
		return
	}
	var p model.Patch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if p.Empty() {
		respondError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		respondError(w, http.StatusBadRequest, "text must not be empty")
		return
	}
	if err := s.records.Update(r.Context(), id, p); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	if !s.checkTable(w, r) {
		return
	}
	id, ok := idFilter(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "delete needs an id=eq.<id> filter")
		return
	}
	if err := s.records.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.log.Info("deleted todo", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
