// Package entitlement decides which stored artifacts of an image a caller may read.
package entitlement

import (
	"fmt"
	"time"

	"github.com/leca/tiered-images/internal/model"
	"github.com/leca/tiered-images/internal/storage"
)

// Artifact names one readable part of an image record.
type Artifact string

const (
	Original       Artifact = "original"
	Thumbnail1     Artifact = "thumbnail_1"
	Thumbnail2     Artifact = "thumbnail_2"
	Link           Artifact = "link"
	ExpirationTime Artifact = "expiration_time"
)

// ParseArtifact maps a URL segment to an Artifact.
func ParseArtifact(s string) (Artifact, bool) {
	switch a := Artifact(s); a {
	case Original, Thumbnail1, Thumbnail2, Link, ExpirationTime:
		return a, true
	}
	return "", false
}

// Gate resolves artifact values for their owner. It never consults the
// owner's current tier: what an image exposes was fixed at upload.
type Gate struct {
	store storage.Storage
}

func NewGate(store storage.Storage) *Gate {
	return &Gate{store: store}
}

// CanView checks that identity may read img at all.
func (g *Gate) CanView(identity *model.Identity, img *model.Image) error {
	if identity == nil || identity.UserID == "" {
		return model.ErrUnauthorized
	}
	if img == nil {
		return model.ErrNotFound
	}
	if img.OwnerID != identity.UserID {
		return model.ErrForbidden
	}
	return nil
}

// Authorize returns the value of artifact on img for identity: a delivery
// URL for thumbnails, the link string, or the link expiry in RFC 3339.
// The original is reachable only through the link its tier granted.
func (g *Gate) Authorize(identity *model.Identity, img *model.Image, artifact Artifact) (string, error) {
	if err := g.CanView(identity, img); err != nil {
		return "", err
	}

	switch artifact {
	case Original, Link:
		if img.OriginalLink == nil {
			return "", model.ErrArtifactNotProduced
		}
		return *img.OriginalLink, nil
	case Thumbnail1:
		return g.refURL(img.Thumbnail1Ref)
	case Thumbnail2:
		return g.refURL(img.Thumbnail2Ref)
	case ExpirationTime:
		if img.LinkExpiresAt == nil {
			return "", model.ErrArtifactNotProduced
		}
		return img.LinkExpiresAt.UTC().Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("artifact %q: %w", artifact, model.ErrNotFound)
	}
}

func (g *Gate) refURL(ref *string) (string, error) {
	if ref == nil {
		return "", model.ErrArtifactNotProduced
	}
	return g.store.URL(*ref), nil
}
