package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/nimbus/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider geocodes addresses with the Google Maps Geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient
	log    *slog.Logger
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when Google finds no match for the weather location address.
var ErrEmptyResponse = errors.New("no Google geocoding match for weather location")

func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode resolves the configured weather location address to the coordinates
// of Google's best match.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Resolving weather location with Google", "address", address)

	results, err := gp.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve weather location %q: %w", address, err)
	}

	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	best := results[0]
	coords := &models.Coordinates{Latitude: best.Geometry.Location.Lat, Longitude: best.Geometry.Location.Lng}
	gp.log.DebugContext(ctx, "Weather location resolved",
		"address", best.FormattedAddress, "latitude", coords.Latitude, "longitude", coords.Longitude)

	return coords, nil
}
