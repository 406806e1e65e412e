package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leca/tiered-images/internal/api"
	"github.com/leca/tiered-images/internal/entitlement"
	"github.com/leca/tiered-images/internal/model"
)

var artifactLabels = map[entitlement.Artifact]string{
	entitlement.Thumbnail1:     "Thumbnail 1",
	entitlement.Thumbnail2:     "Thumbnail 2",
	entitlement.Link:           "Link",
	entitlement.ExpirationTime: "Expiration time",
}

// GetImageArtifact handles GET /user_images/{image_id}/{artifact}. A missing
// artifact is answered with 200 and an error body; only ownership and
// existence failures are HTTP errors.
func (h *Handler) GetImageArtifact(w http.ResponseWriter, r *http.Request) {
	identity := api.GetIdentity(r.Context())

	artifact, ok := entitlement.ParseArtifact(chi.URLParam(r, "artifact"))
	label, labelled := artifactLabels[artifact]
	if !ok || !labelled {
		api.NotFound(w, "Not found.")
		return
	}

	img, err := h.DB.GetImage(r.Context(), chi.URLParam(r, "image_id"))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	value, err := h.Gate.Authorize(identity, img, artifact)
	switch {
	case errors.Is(err, model.ErrArtifactNotProduced):
		api.WriteJSON(w, http.StatusOK, map[string]string{"error": label + " not found."})
	case err != nil:
		api.WriteError(w, err)
	default:
		api.WriteJSON(w, http.StatusOK, map[string]string{string(artifact): value})
	}
}
