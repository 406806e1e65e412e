package database

import (
	"context"
	"time"

	"github.com/leca/tiered-images/internal/model"
)

// Database defines the persistence interface for all domain objects.
// Images have no update operation: derivative fields are written once.
type Database interface {
	// Account tiers
	CreateTier(ctx context.Context, t *model.AccountTier) error
	UpdateTier(ctx context.Context, t *model.AccountTier) error
	GetTier(ctx context.Context, id int64) (*model.AccountTier, error)
	GetTierByName(ctx context.Context, name string) (*model.AccountTier, error)
	ListTiers(ctx context.Context) ([]*model.AccountTier, error)

	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetUserTier(ctx context.Context, userID string, tierID int64) error

	// Images
	CreateImage(ctx context.Context, img *model.Image) error
	GetImage(ctx context.Context, id string) (*model.Image, error)
	GetImageByOriginalRef(ctx context.Context, ref string) (*model.Image, error)
	ListImages(ctx context.Context, q ImageQuery) ([]*model.Image, int, error)

	Close() error
}

// ImageQuery selects one page of an owner's images.
type ImageQuery struct {
	OwnerID     string
	Page        int
	PerPage     int
	NewestFirst bool
	// CreatedAt keeps only images created at exactly that instant when set.
	CreatedAt *time.Time
}
