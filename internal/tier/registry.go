// Package tier holds the account tier catalog and the policy derived from a tier.
package tier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leca/tiered-images/internal/database"
	"github.com/leca/tiered-images/internal/model"
)

// Registry is the account tier catalog. Lookups never fall back to a
// default tier: a missing tier is model.ErrTierNotFound.
type Registry struct {
	db database.Database
}

func NewRegistry(db database.Database) *Registry {
	return &Registry{db: db}
}

func (r *Registry) GetByID(ctx context.Context, id int64) (*model.AccountTier, error) {
	t, err := r.db.GetTier(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tier %d: %w", id, err)
	}
	return t, nil
}

func (r *Registry) GetByName(ctx context.Context, name string) (*model.AccountTier, error) {
	t, err := r.db.GetTierByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("tier %q: %w", name, err)
	}
	return t, nil
}

func (r *Registry) List(ctx context.Context) ([]*model.AccountTier, error) {
	tiers, err := r.db.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	if tiers == nil {
		tiers = []*model.AccountTier{}
	}
	return tiers, nil
}

// Create registers a new tier. Administrative use only.
func (r *Registry) Create(ctx context.Context, t *model.AccountTier) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.db.CreateTier(ctx, t)
}

// Update replaces a tier's policy. Images created earlier keep the
// derivatives resolved at their creation.
func (r *Registry) Update(ctx context.Context, t *model.AccountTier) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.db.UpdateTier(ctx, t)
}

// Seed creates every tier that is not yet registered and updates the
// policy of those that are, matching by name.
func (r *Registry) Seed(ctx context.Context, tiers []model.AccountTier) error {
	for i := range tiers {
		t := tiers[i]
		existing, err := r.db.GetTierByName(ctx, t.Name)
		switch {
		case errors.Is(err, model.ErrTierNotFound):
			if err := r.Create(ctx, &t); err != nil {
				return fmt.Errorf("seed tier %q: %w", t.Name, err)
			}
			slog.Info("account tier created", "tier", t.Name, "id", t.ID)
		case err != nil:
			return fmt.Errorf("seed tier %q: %w", t.Name, err)
		default:
			t.ID = existing.ID
			if err := r.Update(ctx, &t); err != nil {
				return fmt.Errorf("seed tier %q: %w", t.Name, err)
			}
		}
	}
	return nil
}
