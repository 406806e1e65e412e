package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leca/tiered-images/internal/api"
	"github.com/leca/tiered-images/internal/database"
	"github.com/leca/tiered-images/internal/pipeline"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 10 << 20

// UploadImage handles POST /images -- multipart upload of one original.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	identity := api.GetIdentity(r.Context())
	if identity == nil {
		api.Unauthorized(w)
		return
	}

	if limit := h.Config.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			api.TooLarge(w, "upload exceeds the size limit")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.TooLarge(w, "upload exceeds the size limit")
			return
		}
		api.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := formImage(r)
	if err != nil {
		api.FieldError(w, "image", "No file was submitted.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.BadRequest(w, "failed to read upload")
		return
	}
	if len(data) == 0 {
		api.FieldError(w, "image", "The submitted file is empty.")
		return
	}

	img, err := h.Pipeline.Upload(r.Context(), pipeline.UploadRequest{
		OwnerID:  identity.UserID,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		slog.Warn("upload failed", "user_id", identity.UserID, "error", err)
		api.WriteError(w, err)
		return
	}

	resp, err := h.present(identity, img)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, resp)
}

// formImage returns the uploaded file from the "image" field, falling back to "file".
func formImage(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("image")
	if err == nil {
		return file, header, nil
	}
	return r.FormFile("file")
}

// GetImage handles GET /images/{image_id}.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	identity := api.GetIdentity(r.Context())

	img, err := h.DB.GetImage(r.Context(), chi.URLParam(r, "image_id"))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	resp, err := h.present(identity, img)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// ListImages handles GET /images and GET /user_images. Results are always
// scoped to the caller; owner filters in the query string are ignored.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	identity := api.GetIdentity(r.Context())
	if identity == nil {
		api.Unauthorized(w)
		return
	}

	p, err := api.ParsePagination(r)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	q := database.ImageQuery{
		OwnerID:     identity.UserID,
		Page:        p.Page,
		PerPage:     p.PageSize,
		NewestFirst: r.URL.Query().Get("ordering") == "-created_at",
	}
	if v := r.URL.Query().Get("created_at"); v != "" {
		at, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			api.FieldError(w, "created_at", "Enter a valid date/time.")
			return
		}
		q.CreatedAt = &at
	}

	images, total, err := h.DB.ListImages(r.Context(), q)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	results := make([]imageResponse, 0, len(images))
	for _, img := range images {
		resp, err := h.present(identity, img)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		results = append(results, resp)
	}

	page, err := api.NewPage(r, p, total, results)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, page)
}
