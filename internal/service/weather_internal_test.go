package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/nimbus/internal/broadcast"
	"github.com/UnknownOlympus/nimbus/internal/connectivity"
	"github.com/UnknownOlympus/nimbus/internal/home"
	"github.com/UnknownOlympus/nimbus/internal/metrics"
	"github.com/UnknownOlympus/nimbus/internal/models"
	"github.com/UnknownOlympus/nimbus/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeConnectivity is a ConnectivitySource driven by the test.
type fakeConnectivity struct {
	*broadcast.Value[connectivity.State]
}

func newFakeConnectivity() *fakeConnectivity {
	return &fakeConnectivity{broadcast.NewValue[connectivity.State](connectivity.Unavailable{})}
}

func (f *fakeConnectivity) State() connectivity.State {
	return f.Load()
}

type fixture struct {
	service  *WeatherService
	home     *home.WeatherHome
	client   *mocks.WeatherClient
	recorder *mocks.Interface
	conn     *fakeConnectivity
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, withRecorder bool) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	client := mocks.NewWeatherClient(t)
	weatherHome := home.New(client, home.Config{APIKey: "key"}, logger)
	conn := newFakeConnectivity()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	fx := &fixture{home: weatherHome, client: client, conn: conn, metrics: appMetrics}
	var recorder *mocks.Interface
	if withRecorder {
		recorder = mocks.NewInterface(t)
		fx.recorder = recorder
		fx.service = NewWeatherService(logger, weatherHome, conn, recorder, appMetrics, time.Hour)
	} else {
		fx.service = NewWeatherService(logger, weatherHome, conn, nil, appMetrics, time.Hour)
	}

	return fx
}

func sampleWeather() (*models.CurrentWeather, *models.ForecastWeather) {
	return &models.CurrentWeather{Name: "Kyiv", Main: models.Main{Temp: 64.4}},
		&models.ForecastWeather{Cnt: 40, City: models.City{Name: "Kyiv"}}
}

func TestRefresh(t *testing.T) {
	ctx := t.Context()
	coords := models.Coordinates{Latitude: 50.45, Longitude: 30.52}

	t.Run("successful cycle is recorded", func(t *testing.T) {
		fx := newFixture(t, true)
		fx.home.SetLocation(coords.Latitude, coords.Longitude)
		current, forecast := sampleWeather()

		fx.client.On("CurrentWeather", mock.Anything, "weather?lat=50.45&lon=30.52&appid=key&units=imperial").
			Return(current, nil).Once()
		fx.client.On("ForecastWeather", mock.Anything, "forecast?lat=50.45&lon=30.52&appid=key&units=imperial").
			Return(forecast, nil).Once()
		fx.recorder.On("SaveSnapshot", ctx, coords, models.Weather{Current: *current, Forecast: *forecast}).
			Return(nil).Once()

		fx.service.refresh(ctx)

		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.FetchCycles.WithLabelValues("success")), 0)
	})

	t.Run("failed cycle is not recorded", func(t *testing.T) {
		fx := newFixture(t, true)
		_, forecast := sampleWeather()

		fx.client.On("CurrentWeather", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()
		fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()

		fx.service.refresh(ctx)

		fx.recorder.AssertNotCalled(t, "SaveSnapshot", mock.Anything, mock.Anything, mock.Anything)
		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.FetchCycles.WithLabelValues("error")), 0)
	})

	t.Run("recorder error is counted", func(t *testing.T) {
		fx := newFixture(t, true)
		current, forecast := sampleWeather()

		fx.client.On("CurrentWeather", mock.Anything, mock.Anything).Return(current, nil).Once()
		fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()
		fx.recorder.On("SaveSnapshot", ctx, models.Coordinates{}, mock.Anything).Return(assert.AnError).Once()

		fx.service.refresh(ctx)

		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.SnapshotErrors), 0)
		assert.IsType(t, home.Success{}, fx.home.State())
	})

	t.Run("snapshot keeps the coordinates that were fetched", func(t *testing.T) {
		fx := newFixture(t, true)
		fx.home.SetLocation(coords.Latitude, coords.Longitude)
		current, forecast := sampleWeather()

		fx.client.On("CurrentWeather", mock.Anything, "weather?lat=50.45&lon=30.52&appid=key&units=imperial").
			Run(func(_ mock.Arguments) { fx.home.SetLocation(48.85, 2.35) }).
			Return(current, nil).Once()
		fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()
		fx.recorder.On("SaveSnapshot", ctx, coords, mock.Anything).Return(nil).Once()

		fx.service.refresh(ctx)
	})

	t.Run("no recorder configured", func(t *testing.T) {
		fx := newFixture(t, false)
		current, forecast := sampleWeather()

		fx.client.On("CurrentWeather", mock.Anything, mock.Anything).Return(current, nil).Once()
		fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()

		fx.service.refresh(ctx)

		assert.IsType(t, home.Success{}, fx.home.State())
	})
}

func TestConnectivityIndependence(t *testing.T) {
	fx := newFixture(t, false)
	current, forecast := sampleWeather()

	fx.client.On("CurrentWeather", mock.Anything, mock.Anything).Return(current, nil).Once()
	fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()
	fx.service.refresh(t.Context())
	before := fx.home.State()

	fx.conn.Store(connectivity.Available{})
	fx.conn.Store(connectivity.Unavailable{})
	fx.conn.Store(connectivity.Available{})

	assert.Equal(t, before, fx.home.State(), "connectivity must not touch the UI state")

	fx.client.On("CurrentWeather", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()
	fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()
	fx.service.refresh(t.Context())

	assert.Equal(t, home.Error{}, fx.home.State())
	assert.Equal(t, connectivity.Available{}, fx.conn.State(), "a fetch must not touch connectivity")
}

func TestSnapshot(t *testing.T) {
	fx := newFixture(t, false)
	fx.home.SetLocation(40.7, -74.0)

	view := fx.service.Snapshot()
	assert.Equal(t, "loading", view.State)
	assert.Equal(t, "unavailable", view.Connectivity)
	assert.Nil(t, view.Weather)

	current, forecast := sampleWeather()
	fx.client.On("CurrentWeather", mock.Anything, mock.Anything).Return(current, nil).Once()
	fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()
	fx.service.refresh(t.Context())
	fx.conn.Store(connectivity.Available{})

	view = fx.service.Snapshot()
	assert.Equal(t, "success", view.State)
	assert.Equal(t, "available", view.Connectivity)
	assert.Equal(t, models.Coordinates{Latitude: 40.7, Longitude: -74.0}, view.Location)
	require.NotNil(t, view.Weather)
	assert.Equal(t, "Kyiv", view.Weather.Current.Name)
}

func TestRun(t *testing.T) {
	fx := newFixture(t, false)
	current, forecast := sampleWeather()
	fx.client.On("CurrentWeather", mock.Anything, mock.Anything).Return(current, nil).Once()
	fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()

	states, unsubscribe := fx.home.Subscribe(2)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		fx.service.Run(ctx)
		close(done)
	}()

	assert.Equal(t, home.Loading{}, <-states)
	assert.IsType(t, home.Success{}, <-states)

	fx.conn.Store(connectivity.Available{})
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(fx.metrics.Connectivity) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRun_ConnectivityGaugeFollowsLatestState(t *testing.T) {
	fx := newFixture(t, false)
	current, forecast := sampleWeather()
	started := make(chan struct{})
	release := make(chan struct{})

	fx.client.On("CurrentWeather", mock.Anything, mock.Anything).
		Run(func(_ mock.Arguments) {
			close(started)
			<-release
		}).
		Return(current, nil).Once()
	fx.client.On("ForecastWeather", mock.Anything, mock.Anything).Return(forecast, nil).Once()

	states, unsubscribe := fx.home.Subscribe(2)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		fx.service.Run(ctx)
		close(done)
	}()

	// Both changes land while the first refresh is still running.
	<-started
	fx.conn.Store(connectivity.Available{})
	fx.conn.Store(connectivity.Unavailable{})
	close(release)

	assert.Equal(t, home.Loading{}, <-states)
	assert.IsType(t, home.Success{}, <-states)

	assert.Never(t, func() bool {
		return testutil.ToFloat64(fx.metrics.Connectivity) == 1
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.InDelta(t, 0, testutil.ToFloat64(fx.metrics.Connectivity), 0)

	cancel()
	<-done
}
