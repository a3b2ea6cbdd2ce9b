// Package property loads the listing the bot is selling: its asking price,
// negotiation policy, knowledge text and media catalogs.
package property

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed property.yaml
var defaultListing []byte

// MediaItem is one image addressed by a stable path relative to the public base URL
type MediaItem struct {
	Path    string `yaml:"path" json:"path"`
	Caption string `yaml:"caption" json:"caption"`
}

// DiscountTier maps a minimum relative shortfall to a discount off the asking price
type DiscountTier struct {
	Shortfall float64 `yaml:"shortfall" json:"shortfall"`
	Discount  float64 `yaml:"discount" json:"discount"`
}

// NegotiationPolicy configures the price state machine
type NegotiationPolicy struct {
	MinAcceptableRatio float64        `yaml:"min_acceptable_ratio" json:"min_acceptable_ratio"`
	MaxRounds          int            `yaml:"max_rounds" json:"max_rounds"`
	DiscountTiers      []DiscountTier `yaml:"discount_tiers" json:"discount_tiers"`
}

// Media groups the named catalogs
type Media struct {
	Layouts   []MediaItem `yaml:"layouts" json:"layouts"`
	Exterior  []MediaItem `yaml:"exterior" json:"exterior"`
	Interior  []MediaItem `yaml:"interior" json:"interior"`
	Amenities []MediaItem `yaml:"amenities" json:"amenities"`
}

// Photos returns the exterior, interior and amenity sets in that order
func (m Media) Photos() []MediaItem {
	photos := make([]MediaItem, 0, len(m.Exterior)+len(m.Interior)+len(m.Amenities))
	photos = append(photos, m.Exterior...)
	photos = append(photos, m.Interior...)
	photos = append(photos, m.Amenities...)
	return photos
}

// Listing is a property for sale
type Listing struct {
	Name        string            `yaml:"name" json:"name"`
	Currency    string            `yaml:"currency" json:"currency"`
	AskingPrice int64             `yaml:"asking_price" json:"asking_price"`
	LocationURL string            `yaml:"location_url" json:"location_url"`
	Knowledge   string            `yaml:"knowledge" json:"knowledge"`
	Negotiation NegotiationPolicy `yaml:"negotiation" json:"negotiation"`
	Media       Media             `yaml:"media" json:"media"`
}

// Default returns the embedded listing
func Default() (*Listing, error) {
	return Parse(defaultListing)
}

// Load reads a listing from disk. An empty path loads the embedded default.
func Load(path string) (*Listing, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read property file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML listing
func Parse(data []byte) (*Listing, error) {
	var listing Listing
	if err := yaml.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse property listing: %w", err)
	}
	if err := listing.Validate(); err != nil {
		return nil, err
	}
	return &listing, nil
}

// Validate checks the invariants the negotiation engine relies on
func (l *Listing) Validate() error {
	if l.AskingPrice <= 0 {
		return fmt.Errorf("asking_price must be positive, got %d", l.AskingPrice)
	}
	if r := l.Negotiation.MinAcceptableRatio; r <= 0 || r > 1 {
		return fmt.Errorf("min_acceptable_ratio must be in (0, 1], got %v", r)
	}
	if l.Negotiation.MaxRounds <= 0 {
		return fmt.Errorf("max_rounds must be positive, got %d", l.Negotiation.MaxRounds)
	}
	tiers := l.Negotiation.DiscountTiers
	for i, tier := range tiers {
		if tier.Discount < 0 || tier.Discount >= 1 {
			return fmt.Errorf("discount tier %d: discount must be in [0, 1), got %v", i, tier.Discount)
		}
		if i > 0 && tier.Shortfall >= tiers[i-1].Shortfall {
			return fmt.Errorf("discount tiers must be sorted by descending shortfall (tier %d)", i)
		}
	}
	return nil
}

// MediaURL resolves a catalog path under the public base URL
func MediaURL(baseURL, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	return url.JoinPath(baseURL, path)
}
