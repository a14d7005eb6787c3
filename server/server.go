// Package server exposes the item store over HTTP for LAN clients: listing,
// snippet and file submission, deletion, and file download.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/lanshare/store"
)

// DefaultMaxFileBytes caps multipart uploads when no limit is configured.
const DefaultMaxFileBytes = 256 << 20

// Service handles the item sharing routes.
type Service struct {
	store        *store.Store
	logger       *slog.Logger
	maxFileBytes int64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxFileBytes caps the accepted upload size.
func WithMaxFileBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFileBytes = n
		}
	}
}

// New creates the service over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:        st,
		logger:       slog.Default(),
		maxFileBytes: DefaultMaxFileBytes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RegisterHTTP mounts the item routes on r.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/items", s.handleList)
	r.Get("/items/{id}", s.handleGet)
	r.Post("/snippets", s.handleCreateSnippet)
	r.Post("/files", s.handleUploadFile)
	r.Delete("/items/{id}", s.handleDelete)
	r.Get("/files/{id}/download", s.handleDownload)
}

// handleList returns every item, newest first.
// GET /items
func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleGet returns one item.
// GET /items/{id}
func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		s.logger.Error("get item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

type snippetRequest struct {
	Content string `json:"content"`
}

// handleCreateSnippet stores a text snippet and returns the created item.
// POST /snippets
func (s *Service) handleCreateSnippet(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	it, err := s.store.AddText(r.Context(), req.Content)
	if err != nil {
		s.logger.Error("add snippet", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store snippet")
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// handleUploadFile stores a multipart upload ("file" field) and returns the
// created item.
// POST /files
func (s *Service) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer f.Close()

	contentType := hdr.Header.Get("Content-Type")
	it, err := s.store.AddFile(r.Context(), hdr.Filename, contentType, f)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds %d bytes", tooBig.Limit))
			return
		}
		s.logger.Error("add file", "name", hdr.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// handleDelete removes an item.
// DELETE /items/{id}
func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		s.logger.Error("delete item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDownload streams a file item's payload with its original name.
// GET /files/{id}/download
func (s *Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, fileName, err := s.store.FilePath(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		s.logger.Error("resolve file", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve file")
		return
	}

	ct := mime.TypeByExtension(filepath.Ext(fileName))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
