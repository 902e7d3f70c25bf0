package geocoding

import (
	"context"

	"github.com/UnknownOlympus/nimbus/internal/models"
)

// Provider resolves a free-form address into the coordinates used for weather requests.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}
