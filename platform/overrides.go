package platform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/aluiziolira/go-scrape-products/models"
)

// Override replaces parts of a built-in profile. Empty fields keep the default.
type Override struct {
	BaseURL string           `yaml:"base_url"`
	Listing ListingSelectors `yaml:"listing"`
	Detail  DetailSelectors  `yaml:"detail"`
}

// Overrides maps platform names (case-insensitive) to overrides.
type Overrides map[string]Override

// LoadOverrides reads a YAML selector file such as:
//
//	jumia:
//	  base_url: https://www.jumia.com.eg
//	  listing:
//	    containers: ["article.prd"]
//	    price: [".prc", "[data-price]@data-price"]
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selectors file: %w", err)
	}
	var out Overrides
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse selectors file %s: %w", path, err)
	}
	return out, nil
}

// Apply merges the overrides into profiles in place.
func (o Overrides) Apply(profiles map[models.Platform]*Profile) error {
	for name, ov := range o {
		platform, err := models.ParsePlatform(name)
		if err != nil {
			return fmt.Errorf("selectors file: %w", err)
		}
		profile, ok := profiles[platform]
		if !ok {
			continue
		}
		if ov.BaseURL != "" {
			profile.BaseURL = ov.BaseURL
		}
		applyListing(&profile.Listing, ov.Listing)
		applyDetail(&profile.Detail, ov.Detail)
	}
	return nil
}
