package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/leca/tiered-images/internal/model"
)

const invalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Detail: msg})
}

// FieldError writes a 400 response describing a problem with one form field.
func FieldError(w http.ResponseWriter, field, msg string) {
	WriteJSON(w, http.StatusBadRequest, map[string][]string{field: {msg}})
}

// Unauthorized writes a 401 error response. The body never says why.
func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, ErrorBody{Detail: "Invalid token"})
}

// Forbidden writes a 403 error response.
func Forbidden(w http.ResponseWriter) {
	WriteJSON(w, http.StatusForbidden, ErrorBody{Detail: "You do not have permission to perform this action."})
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusNotFound, ErrorBody{Detail: msg})
}

// TooLarge writes a 413 error response.
func TooLarge(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{Detail: msg})
}

// WriteError maps a domain error to its HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		Unauthorized(w)
	case errors.Is(err, model.ErrForbidden):
		Forbidden(w)
	case errors.Is(err, ErrInvalidPage):
		NotFound(w, "Invalid page.")
	case errors.Is(err, model.ErrNotFound):
		NotFound(w, "Not found.")
	case errors.Is(err, model.ErrInvalidImageFormat):
		FieldError(w, "image", invalidImageMessage)
	case errors.Is(err, model.ErrTierNotFound):
		slog.Error("account tier misconfigured", "error", err)
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{Detail: "Account tier is not configured."})
	case errors.Is(err, model.ErrArtifactWriteFailed):
		slog.Error("artifact write failed", "error", err)
		WriteJSON(w, http.StatusServiceUnavailable, ErrorBody{Detail: "Image storage is unavailable, try again later."})
	default:
		slog.Error("unhandled error", "error", err)
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{Detail: "Internal server error."})
	}
}
