package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/nimbus/internal/connectivity"
	"github.com/UnknownOlympus/nimbus/internal/home"
	"github.com/UnknownOlympus/nimbus/internal/metrics"
	"github.com/UnknownOlympus/nimbus/internal/models"
	"github.com/UnknownOlympus/nimbus/internal/repository"
)

// ConnectivitySource is the read-only connectivity signal shown next to the weather.
type ConnectivitySource interface {
	State() connectivity.State
	Subscribe(buffer int) (<-chan connectivity.State, func())
}

// WeatherService hosts a WeatherHome: it drives periodic fetch cycles, records
// successful results and mirrors the connectivity signal into metrics.
type WeatherService struct {
	log          *slog.Logger         // Logger for logging service activities
	home         *home.WeatherHome    // Orchestrator producing the UI state
	connectivity ConnectivitySource   // Independent network availability signal
	recorder     repository.Interface // Optional snapshot storage, nil disables recording
	metrics      *metrics.Metrics     // Metrics for tracking service performance
	interval     time.Duration        // Interval between fetch cycles
}

// View is the JSON representation of what the weather home currently shows.
type View struct {
	State        string             `json:"state"`
	Location     models.Coordinates `json:"location"`
	Connectivity string             `json:"connectivity"`
	Weather      *models.Weather    `json:"weather,omitempty"`
}

// NewWeatherService creates a new instance of WeatherService. recorder may be nil.
func NewWeatherService(
	log *slog.Logger,
	weatherHome *home.WeatherHome,
	conn ConnectivitySource,
	recorder repository.Interface,
	metrics *metrics.Metrics,
	interval time.Duration,
) *WeatherService {
	return &WeatherService{
		log:          log,
		home:         weatherHome,
		connectivity: conn,
		recorder:     recorder,
		metrics:      metrics,
		interval:     interval,
	}
}

// Run performs a fetch cycle right away and then on every interval until ctx is cancelled.
func (ws *WeatherService) Run(ctx context.Context) {
	ticker := time.NewTicker(ws.interval)
	defer ticker.Stop()

	updates, unsubscribe := ws.connectivity.Subscribe(1)
	defer unsubscribe()
	ws.observeConnectivity(ws.connectivity.State())

	ws.log.InfoContext(ctx, "Weather service started...", "interval", ws.interval)

	ws.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			ws.log.InfoContext(ctx, "Weather service stopped.")
			return
		case <-updates:
			// Updates only wake the loop; State is the authoritative value.
			ws.observeConnectivity(ws.connectivity.State())
		case <-ticker.C:
			ws.refresh(ctx)
		}
	}
}

// refresh runs one fetch cycle and stores the result when it succeeded.
func (ws *WeatherService) refresh(ctx context.Context) {
	state, coords := ws.home.FetchWeatherWithLocation(ctx)
	ws.metrics.FetchCycles.WithLabelValues(home.StateName(state)).Inc()

	success, ok := state.(home.Success)
	if !ok {
		ws.log.WarnContext(ctx, "Weather fetch cycle failed", "error", ws.home.LastError())
		return
	}

	ws.log.InfoContext(ctx, "Weather fetch cycle succeeded",
		"location", success.Weather.Current.Name, "temperature", success.Weather.Current.Main.Temp)

	if ws.recorder == nil {
		return
	}

	if err := ws.recorder.SaveSnapshot(ctx, coords, success.Weather); err != nil {
		ws.metrics.SnapshotErrors.Inc()
		ws.log.ErrorContext(ctx, "Failed to store weather snapshot", "error", err)
	}
}

func (ws *WeatherService) observeConnectivity(state connectivity.State) {
	if _, ok := state.(connectivity.Available); ok {
		ws.metrics.Connectivity.Set(1)
		return
	}
	ws.metrics.Connectivity.Set(0)
}

// Snapshot returns the current state, location and connectivity as a View.
func (ws *WeatherService) Snapshot() View {
	state := ws.home.State()
	view := View{
		State:        home.StateName(state),
		Location:     ws.home.Location(),
		Connectivity: connectivity.StateName(ws.connectivity.State()),
	}

	if success, ok := state.(home.Success); ok {
		weather := success.Weather
		view.Weather = &weather
	}

	return view
}
