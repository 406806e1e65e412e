package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leca/tiered-images/internal/api"
	"github.com/leca/tiered-images/internal/model"
)

// ListTiers handles GET /account_tiers.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	p, err := api.ParsePagination(r)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	tiers, err := h.Tiers.List(r.Context())
	if err != nil {
		api.WriteError(w, err)
		return
	}

	start := min((p.Page-1)*p.PageSize, len(tiers))
	end := min(start+p.PageSize, len(tiers))
	page, err := api.NewPage(r, p, len(tiers), tiers[start:end])
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, page)
}

// GetTier handles GET /account_tiers/{tier_id}. Unlike an upload, a missing
// tier here is an ordinary 404.
func (h *Handler) GetTier(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tier_id"), 10, 64)
	if err != nil {
		api.NotFound(w, "Not found.")
		return
	}

	t, err := h.Tiers.GetByID(r.Context(), id)
	if errors.Is(err, model.ErrTierNotFound) {
		api.NotFound(w, "Not found.")
		return
	}
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, t)
}
