package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/nimbus/internal/config"
	"github.com/UnknownOlympus/nimbus/internal/connectivity"
	"github.com/UnknownOlympus/nimbus/internal/geocoding"
	"github.com/UnknownOlympus/nimbus/internal/home"
	"github.com/UnknownOlympus/nimbus/internal/metrics"
	"github.com/UnknownOlympus/nimbus/internal/openweather"
	"github.com/UnknownOlympus/nimbus/internal/repository"
	"github.com/UnknownOlympus/nimbus/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	client, err := openweather.NewClient(cfg.BaseURL, cfg.HTTPTimeout, cfg.RateLimit, logger)
	if err != nil {
		log.Fatalf("Failed to create weather client: %v", err)
	}
	client.SetObserver(func(kind string, took time.Duration) {
		appMetrics.RequestSeconds.WithLabelValues(kind).Observe(took.Seconds())
	})

	weatherHome := home.New(client, home.Config{APIKey: cfg.APIKey, Units: cfg.Units}, logger)
	weatherHome.SetLocation(resolveLocation(ctx, cfg, logger))

	// Snapshot storage is optional; without a database host the service only keeps state in memory.
	var (
		dtb      *pgxpool.Pool
		recorder repository.Interface
	)
	if cfg.Database.Enabled() {
		dtb, err = repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer dtb.Close()

		repo := repository.NewRepository(dtb, logger)
		if err = repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare DB schema: %v", err)
		}
		recorder = repo
	}

	observer := connectivity.NewObserver(
		connectivity.NewDialMonitor(cfg.Connectivity.Target, cfg.Connectivity.Timeout),
		cfg.Connectivity.Interval,
		logger,
	)

	weatherService := service.NewWeatherService(
		logger, weatherHome, observer, recorder, appMetrics, cfg.RefreshInterval,
	)

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	go startMonitoringServer(ctx, logger, reg, dtb, weatherService, cfg.Port)
	go observer.Run(ctx)
	go weatherService.Run(ctx)

	<-ctx.Done()

	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// resolveLocation returns the configured coordinates, or the geocoded address when one is set.
// A failed lookup falls back to the configured coordinates.
func resolveLocation(ctx context.Context, cfg *config.Config, logger *slog.Logger) (float64, float64) {
	lat, lon := cfg.Location.Latitude, cfg.Location.Longitude
	if cfg.Location.Address == "" {
		return lat, lon
	}

	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:   geocoding.ProviderType(cfg.Geocoder.Type),
		APIKey: cfg.Geocoder.APIKey,
		Logger: logger,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create geocoding provider", "error", err)
		return lat, lon
	}

	return locate(ctx, provider, cfg.Location, logger)
}

// locate geocodes loc.Address, keeping the configured coordinates when the lookup fails.
func locate(
	ctx context.Context,
	provider geocoding.Provider,
	loc config.LocationConfig,
	logger *slog.Logger,
) (float64, float64) {
	coords, err := provider.Geocode(ctx, loc.Address)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to geocode location", "address", loc.Address, "error", err)
		return loc.Latitude, loc.Longitude
	}

	logger.InfoContext(ctx, "Location resolved",
		"address", loc.Address, "latitude", coords.Latitude, "longitude", coords.Longitude)

	return coords.Latitude, coords.Longitude
}

// startMonitoringServer starts an HTTP server that provides health check, metrics
// and current weather endpoints.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - dtb: A pgxpool connector for database methods (ping), nil when storage is disabled.
// - weather: The service whose current view is served on /weather.
// - port: The port number on which the server will listen.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	dtb *pgxpool.Pool,
	weather *service.WeatherService,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if dtb != nil {
			if err := dtb.Ping(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, "DB ping failed"
			}
		}
		writer.WriteHeader(status)
		if _, err := writer.Write([]byte(body)); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})
	mux.HandleFunc("/weather", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(writer).Encode(weather.Snapshot()); err != nil {
			log.ErrorContext(ctx, "failed to write weather view", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       slog.LevelWarn,
			ReplaceAttr: dropTime,
		}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       slog.LevelError,
			ReplaceAttr: dropTime,
		}))

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
