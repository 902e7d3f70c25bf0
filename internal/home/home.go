package home

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/UnknownOlympus/nimbus/internal/broadcast"
	"github.com/UnknownOlympus/nimbus/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultUnits is the unit system requested from the weather API.
const DefaultUnits = "imperial"

// Endpoint templates, relative to the weather API base URL.
const (
	currentTemplate  = "weather?lat=%s&lon=%s&appid=%s&units=%s"
	forecastTemplate = "forecast?lat=%s&lon=%s&appid=%s&units=%s"
)

// WeatherClient fetches and decodes both kinds of weather records for a relative endpoint.
type WeatherClient interface {
	CurrentWeather(ctx context.Context, endpoint string) (*models.CurrentWeather, error)
	ForecastWeather(ctx context.Context, endpoint string) (*models.ForecastWeather, error)
}

// Config carries the credential and unit system appended to every request.
type Config struct {
	APIKey string // APIKey is query-escaped into the appid parameter.
	Units  string // Units defaults to DefaultUnits when empty.
}

// WeatherHome fetches current and forecast weather for the stored location and
// reduces both results into a single UiState.
type WeatherHome struct {
	client WeatherClient
	cfg    Config
	log    *slog.Logger

	mu      sync.Mutex
	coords  models.Coordinates
	lastErr error

	state *broadcast.Value[UiState]
}

// New creates a WeatherHome in the Loading state with coordinates (0,0).
func New(client WeatherClient, cfg Config, log *slog.Logger) *WeatherHome {
	if cfg.Units == "" {
		cfg.Units = DefaultUnits
	}

	return &WeatherHome{
		client: client,
		cfg:    cfg,
		log:    log,
		state:  broadcast.NewValue[UiState](Loading{}),
	}
}

// SetLocation stores the coordinates used by subsequent fetches. Values are not validated.
func (wh *WeatherHome) SetLocation(lat, lon float64) {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	wh.coords = models.Coordinates{Latitude: lat, Longitude: lon}
}

// Location returns the stored coordinates.
func (wh *WeatherHome) Location() models.Coordinates {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	return wh.coords
}

// State returns the current UiState.
func (wh *WeatherHome) State() UiState {
	return wh.state.Load()
}

// Subscribe returns a channel of state updates and a cancel func.
func (wh *WeatherHome) Subscribe(buffer int) (<-chan UiState, func()) {
	return wh.state.Subscribe(buffer)
}

// LastError returns the cause of the most recent Error state, or nil after a Success.
func (wh *WeatherHome) LastError() error {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	return wh.lastErr
}

// FetchWeather runs one fetch cycle. It publishes Loading, requests current and
// forecast weather concurrently, waits for both and publishes either Success
// or Error. The terminal state is also returned.
func (wh *WeatherHome) FetchWeather(ctx context.Context) UiState {
	state, _ := wh.FetchWeatherWithLocation(ctx)

	return state
}

// FetchWeatherWithLocation runs one fetch cycle like FetchWeather and also returns
// the coordinates that cycle requested, which a concurrent SetLocation does not affect.
func (wh *WeatherHome) FetchWeatherWithLocation(ctx context.Context) (UiState, models.Coordinates) {
	wh.state.Store(Loading{})

	coords := wh.Location()
	currentEndpoint, forecastEndpoint := wh.endpoints(coords)

	var (
		current  *models.CurrentWeather
		forecast *models.ForecastWeather
	)

	// The group context is not handed to the fetches: a failure of one must not
	// cancel the other, both are always awaited.
	var group errgroup.Group
	group.Go(func() error {
		res, err := wh.client.CurrentWeather(ctx, currentEndpoint)
		if err != nil {
			return fmt.Errorf("current weather: %w", err)
		}
		current = res
		return nil
	})
	group.Go(func() error {
		res, err := wh.client.ForecastWeather(ctx, forecastEndpoint)
		if err != nil {
			return fmt.Errorf("forecast weather: %w", err)
		}
		forecast = res
		return nil
	})

	err := group.Wait()
	if err == nil && (current == nil || forecast == nil) {
		err = ErrEmptyResult
	}

	var state UiState
	if err != nil {
		wh.log.ErrorContext(ctx, "Failed to fetch weather",
			"latitude", coords.Latitude, "longitude", coords.Longitude, "error", err)
		state = Error{}
	} else {
		wh.log.DebugContext(ctx, "Weather fetched",
			"latitude", coords.Latitude, "longitude", coords.Longitude)
		state = Success{Weather: models.Weather{Current: *current, Forecast: *forecast}}
	}

	wh.mu.Lock()
	wh.lastErr = err
	wh.mu.Unlock()

	wh.state.Store(state)

	return state, coords
}

// endpoints fills both request templates with the given coordinates.
func (wh *WeatherHome) endpoints(coords models.Coordinates) (string, string) {
	lat, lon := formatCoordinate(coords.Latitude), formatCoordinate(coords.Longitude)
	key, units := url.QueryEscape(wh.cfg.APIKey), url.QueryEscape(wh.cfg.Units)

	return fmt.Sprintf(currentTemplate, lat, lon, key, units),
		fmt.Sprintf(forecastTemplate, lat, lon, key, units)
}

// formatCoordinate renders the shortest exact decimal form, keeping ".0" on whole numbers (40.7, -74.0, 0.0).
func formatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}

	return s
}
