package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/idilsaglam/cloudtodo/internal/auth"
)

type ctxKey int

const roleKey ctxKey = iota

// RoleFrom returns the role of the key that authorized the request.
func RoleFrom(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// requireKey accepts the key from the apikey header or a bearer token.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("apikey"))
		if key == "" {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				key = strings.TrimSpace(parts[1])
			}
		}
		if key == "" {
			respondError(w, http.StatusUnauthorized, "missing api key")
			return
		}
		claims, err := auth.ValidateKey(s.opt.Secret, key)
		if err != nil {
			s.log.Warn("rejected key", "path", r.URL.Path, "err", err)
			respondError(w, http.StatusUnauthorized, "invalid api key: "+err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start).Round(time.Microsecond),
		)
	})
}
