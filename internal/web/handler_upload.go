package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/sitegallery/internal/blobstore"
	"github.com/vbonduro/sitegallery/internal/service"
)

const (
	maxUploadSize = 20 * 1024 * 1024 // 20 MB
	uploadField   = "imagen"
)

// servableExts lists the blob extensions exposed under /uploads. Anything
// else in the blob store (such as the metadata document) stays private.
var servableExts = map[string]bool{
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"success": false, "message": "file too large"})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "failed to parse form"})
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "no file"})
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "server error: failed to read file"})
		return
	}

	rec, err := s.service.Upload(r.Context(), service.UploadInput{
		Filename:    header.Filename,
		Data:        data,
		Title:       r.FormValue("title"),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Description: r.FormValue("description"),
	})
	switch {
	case errors.Is(err, service.ErrInvalidCategory), errors.Is(err, service.ErrUnsupportedImage):
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	case err != nil:
		s.logger.Error("upload image failed", "filename", header.Filename, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "server error: " + err.Error()})
		return
	}

	sess, _ := sessionFrom(r.Context())
	s.logger.Info("image uploaded", "id", rec.ID, "category", rec.Category, "session_id", sess.ID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "image uploaded",
		"image":   rec,
	})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" || strings.ContainsAny(key, `/\`) || !servableExts[strings.ToLower(path.Ext(key))] {
		http.NotFound(w, r)
		return
	}

	reader, contentType, err := s.blobs.Get(r.Context(), key)
	if errors.Is(err, blobstore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("get upload failed", "key", key, "error", err)
		http.Error(w, "failed to load image", http.StatusInternalServerError)
		return
	}
	defer closeWithLog(reader, "upload reader", s.logger)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write upload failed", "key", key, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
