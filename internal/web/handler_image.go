package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("API OK")); err != nil {
		s.logger.Error("write health failed", "error", err)
	}
}

func (s *Server) handlePublicImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.service.PublicFeed(r.Context())
	if err != nil {
		s.logger.Error("public feed failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "failed to load images"})
		return
	}

	h := w.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	s.writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"))
	limit := queryInt(q.Get("limit"))

	result, err := s.service.List(r.Context(), page, limit)
	if err != nil {
		s.logger.Error("list images failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "failed to list images"})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "image id required"})
		return
	}

	result, err := s.service.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("delete image failed", "id", id, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "server error: " + err.Error()})
		return
	}

	message := "image deleted"
	if !result.Removed {
		message = "image not found"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"removed": result.Removed,
		"message": message,
	})
}

// queryInt parses a query value, returning 0 (the "use default" signal)
// when it is missing or not a number.
func queryInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write json failed", "error", err)
	}
}
