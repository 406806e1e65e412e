package tier

import (
	"fmt"
	"os"

	"github.com/leca/tiered-images/internal/model"
	"gopkg.in/yaml.v3"
)

func intp(v int) *int { return &v }

// Defaults are the built-in tiers.
func Defaults() []model.AccountTier {
	return []model.AccountTier{
		{Name: "Basic", ThumbnailSize1: intp(200)},
		{Name: "Premium", ThumbnailSize1: intp(200), ThumbnailSize2: intp(400), LinkToOriginal: true},
		{Name: "Enterprise", ThumbnailSize1: intp(200), ThumbnailSize2: intp(400), LinkToOriginal: true, LinkExpirationTime: intp(600)},
	}
}

type seedFile struct {
	Tiers []model.AccountTier `yaml:"tiers"`
}

// LoadSeedFile reads tier definitions from a YAML document of the form
//
//	tiers:
//	  - name: Basic
//	    thumbnail_size_1: 200
func LoadSeedFile(path string) ([]model.AccountTier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tiers file %s: %w", path, err)
	}
	for i := range f.Tiers {
		if err := f.Tiers[i].Validate(); err != nil {
			return nil, fmt.Errorf("tier %d in %s: %w", i, path, err)
		}
	}
	return f.Tiers, nil
}
