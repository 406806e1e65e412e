package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leca/tiered-images/internal/api"
	"github.com/leca/tiered-images/internal/imageproc"
	"github.com/leca/tiered-images/internal/model"
	"github.com/leca/tiered-images/internal/signer"
	"github.com/leca/tiered-images/internal/storage"
)

// ServeMedia handles GET /media/* -- streams a stored object. A request
// carrying link parameters must verify. An original is served only through
// the link its tier granted: unsigned when the link is permanent, signed
// otherwise.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	query := r.URL.Query()

	signed := signer.Signed(query)
	if signed {
		if err := h.Signer.Verify(r.URL.EscapedPath(), query, h.now()); err != nil {
			slog.Debug("media link rejected", "key", key, "error", err)
			api.Forbidden(w)
			return
		}
	}

	if strings.HasPrefix(key, "originals/") {
		img, err := h.DB.GetImageByOriginalRef(r.Context(), key)
		if errors.Is(err, model.ErrNotFound) {
			api.NotFound(w, "Not found.")
			return
		}
		if err != nil {
			api.WriteError(w, err)
			return
		}
		if !signed && !img.HasPermanentLink() {
			slog.Debug("unsigned request for restricted original", "key", key, "image_id", img.ID)
			api.Forbidden(w)
			return
		}
	}

	rc, err := h.Store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			api.NotFound(w, "Not found.")
			return
		}
		api.WriteError(w, err)
		return
	}
	defer rc.Close()

	// Read up to 512 bytes for content-type detection.
	buf := make([]byte, 512)
	n, err := io.ReadAtLeast(rc, buf, 1)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	buf = buf[:n]

	w.Header().Set("Content-Type", imageproc.ContentType(imageproc.DetectFormat(buf)))
	w.WriteHeader(http.StatusOK)

	// Write the already-read bytes first, then stream the rest.
	if _, err := w.Write(buf); err != nil {
		slog.Warn("ServeMedia: failed to write response", "key", key, "error", err)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("ServeMedia: failed to stream response", "key", key, "error", err)
	}
}
