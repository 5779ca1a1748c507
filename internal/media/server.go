package media

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"linkcamp/internal/dbmongo"
	"linkcamp/internal/httpapi"
)

// PhotoSource reads stored photos by file id.
type PhotoSource interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, *dbmongo.PhotoFile, error)
}

// Handler streams stored photos at /media/{fileId}.
type Handler struct {
	photos PhotoSource
}

func NewHandler(photos PhotoSource) *Handler {
	return &Handler{photos: photos}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/media/{fileId}", h.ServeFile).Methods(http.MethodGet, http.MethodHead)
}

func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]

	body, file, err := h.photos.Download(r.Context(), fileID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType(file))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, body); err != nil {
		httpapi.LoggerFrom(r.Context()).Warn("photo stream interrupted", "file_id", fileID, "error", err)
	}
}

func contentType(file *dbmongo.PhotoFile) string {
	if file.MimeType != "" {
		return file.MimeType
	}
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".avif":
		return "image/avif"
	default:
		return "application/octet-stream"
	}
}
