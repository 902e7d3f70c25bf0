package geocoding

import (
	"errors"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
)

// ErrMissingAPIKey is returned when a provider that needs a key is configured without one.
var ErrMissingAPIKey = errors.New("API key is required for Google provider")

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (Google only)
	RateLimit int          // Requests per second (Google only, 0 keeps the client default)
	UserAgent string       // User-Agent sent to Nominatim
	Logger    *slog.Logger // Logger for the provider
}

// NewProvider creates the geocoding provider selected by config.Type.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeGoogle:
		if config.APIKey == "" {
			return nil, ErrMissingAPIKey
		}

		opts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
		if config.RateLimit > 0 {
			opts = append(opts, maps.WithRateLimit(config.RateLimit))
		}

		client, err := maps.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
		}

		return NewGoogleProvider(client, config.Logger), nil
	case ProviderTypeNominatim:
		return NewNominatimProvider(config.UserAgent, config.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %q", config.Type)
	}
}
