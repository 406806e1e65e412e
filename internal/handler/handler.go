package handler

import (
	"errors"
	"time"

	"github.com/leca/tiered-images/internal/config"
	"github.com/leca/tiered-images/internal/database"
	"github.com/leca/tiered-images/internal/entitlement"
	"github.com/leca/tiered-images/internal/model"
	"github.com/leca/tiered-images/internal/pipeline"
	"github.com/leca/tiered-images/internal/signer"
	"github.com/leca/tiered-images/internal/storage"
	"github.com/leca/tiered-images/internal/tier"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	DB       database.Database
	Store    storage.Storage
	Pipeline *pipeline.Pipeline
	Gate     *entitlement.Gate
	Tiers    *tier.Registry
	Signer   *signer.Signer
	Config   *config.Config
	Now      func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// imageResponse is the JSON shape of an image. Derivative fields are
// omitted when the image's tier did not produce them; image_url is the
// link the tier granted to the original, signed when it expires.
type imageResponse struct {
	ID                 string `json:"id"`
	Owner              string `json:"owner"`
	Filename           string `json:"filename,omitempty"`
	ImageURL           string `json:"image_url,omitempty"`
	Thumbnail1URL      string `json:"thumbnail_1_url,omitempty"`
	Thumbnail2URL      string `json:"thumbnail_2_url,omitempty"`
	LinkToOriginal     string `json:"link_to_original,omitempty"`
	LinkExpirationTime string `json:"link_expiration_time,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// present renders img for identity, reading every artifact through the gate.
func (h *Handler) present(identity *model.Identity, img *model.Image) (imageResponse, error) {
	resp := imageResponse{
		ID:        img.ID,
		Owner:     img.OwnerID,
		Filename:  img.Filename,
		CreatedAt: img.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	fields := []struct {
		artifact entitlement.Artifact
		dst      *string
	}{
		{entitlement.Original, &resp.ImageURL},
		{entitlement.Thumbnail1, &resp.Thumbnail1URL},
		{entitlement.Thumbnail2, &resp.Thumbnail2URL},
		{entitlement.Link, &resp.LinkToOriginal},
		{entitlement.ExpirationTime, &resp.LinkExpirationTime},
	}
	for _, f := range fields {
		v, err := h.Gate.Authorize(identity, img, f.artifact)
		if errors.Is(err, model.ErrArtifactNotProduced) {
			continue
		}
		if err != nil {
			return imageResponse{}, err
		}
		*f.dst = v
	}
	return resp, nil
}
