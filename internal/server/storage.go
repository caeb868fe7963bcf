package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/blake2b"

	"github.com/idilsaglam/cloudtodo/internal/store"
	"github.com/idilsaglam/cloudtodo/internal/store/blobfs"
)

// objectVars returns the unescaped key when the bucket matches.
func (s *Server) objectVars(w http.ResponseWriter, r *http.Request) (string, bool) {
	vars := mux.Vars(r)
	bucket, err := url.PathUnescape(vars["bucket"])
	if err != nil || bucket != s.opt.Bucket {
		respondError(w, http.StatusNotFound, "bucket not found")
		return "", false
	}
	key, err := url.PathUnescape(vars["key"])
	if err != nil || !blobfs.ValidKey(key) {
		respondError(w, http.StatusBadRequest, "invalid key")
		return "", false
	}
	return key, true
}

func (s *Server) uploadBlob(w http.ResponseWriter, r *http.Request) {
	key, ok := s.objectVars(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opt.MaxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("object exceeds %dMB", s.opt.MaxUpload>>20))
			return
		}
		respondError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	opt := store.UploadOptions{
		ContentType: r.Header.Get("Content-Type"),
		Upsert:      r.Header.Get("x-upsert") == "true",
	}
	if err := s.blobs.Upload(r.Context(), key, data, opt); err != nil {
		if errors.Is(err, blobfs.ErrBadKey) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondStoreError(w, err)
		return
	}
	s.log.Info("stored object", "key", key, "bytes", len(data))
	respondJSON(w, http.StatusOK, map[string]string{"Key": path.Join(s.opt.Bucket, key)})
}

func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request) {
	key, ok := s.objectVars(w, r)
	if !ok {
		return
	}
	f, err := s.blobs.Open(key)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	h, _ := blake2b.New256(nil)
	if _, err := io.Copy(h, f); err != nil {
		s.respondStoreError(w, err)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.Header().Set("ETag", `"`+hex.EncodeToString(h.Sum(nil))+`"`)
	w.Header().Set("Cache-Control", s.opt.CacheControl)
	http.ServeContent(w, r, key, info.ModTime(), f)
}

type removeRequest struct {
	Prefixes []string `json:"prefixes"`
}

type removedObject struct {
	Name string `json:"name"`
}

func (s *Server) removeBlobs(w http.ResponseWriter, r *http.Request) {
	bucket, err := url.PathUnescape(mux.Vars(r)["bucket"])
	if err != nil || bucket != s.opt.Bucket {
		respondError(w, http.StatusNotFound, "bucket not found")
		return
	}
	var req removeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	for _, k := range req.Prefixes {
		if !blobfs.ValidKey(k) {
			respondError(w, http.StatusBadRequest, "invalid key "+k)
			return
		}
	}
	if err := s.blobs.Remove(r.Context(), req.Prefixes...); err != nil {
		s.respondStoreError(w, err)
		return
	}
	out := make([]removedObject, 0, len(req.Prefixes))
	for _, k := range req.Prefixes {
		out = append(out, removedObject{Name: k})
	}
	respondJSON(w, http.StatusOK, out)
}
