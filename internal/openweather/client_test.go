package openweather_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UnknownOlympus/nimbus/internal/openweather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(_ *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	}
}

const currentBody = `{
	"coord":{"lon":-74,"lat":40.7},
	"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],
	"main":{"temp":71.6,"feels_like":70.9,"temp_min":68,"temp_max":75,"pressure":1015,"humidity":52},
	"wind":{"speed":8.05,"deg":240},
	"clouds":{"all":0},
	"dt":1700000000,
	"sys":{"country":"US","sunrise":1699990000,"sunset":1700030000},
	"timezone":-18000,
	"id":5128581,
	"name":"New York",
	"cod":200
}`

const forecastBody = `{
	"cod":"200",
	"message":0,
	"cnt":1,
	"list":[{"dt":1700010800,"main":{"temp":69.1},"weather":[{"id":801,"main":"Clouds"}],"pop":0.2,"dt_txt":"2023-11-15 03:00:00"}],
	"city":{"id":5128581,"name":"New York","country":"US"}
}`

func newClient(t *testing.T, doer openweather.HTTPClient) *openweather.Client {
	t.Helper()
	client, err := openweather.NewClientWithHTTPClient(
		doer, openweather.DefaultBaseURL, rate.NewLimiter(rate.Inf, 0), slog.Default(),
	)
	require.NoError(t, err)

	return client
}

func TestClient_CurrentWeather(t *testing.T) {
	ctx := t.Context()
	endpoint := "weather?lat=40.7&lon=-74.0&appid=test-key&units=imperial"

	t.Run("successful request", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Equal(t, "/data/2.5/weather", req.URL.Path)
				assert.Equal(t, "40.7", req.URL.Query().Get("lat"))
				assert.Equal(t, "-74.0", req.URL.Query().Get("lon"))
				assert.Equal(t, "test-key", req.URL.Query().Get("appid"))
				assert.Equal(t, "imperial", req.URL.Query().Get("units"))
				assert.Equal(t, "application/json", req.Header.Get("Accept"))

				return respond(http.StatusOK, currentBody)(req)
			},
		}

		current, err := newClient(t, mockClient).CurrentWeather(ctx, endpoint)

		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "New York", current.Name)
		assert.InEpsilon(t, 71.6, current.Main.Temp, 0.001)
		require.Len(t, current.Conditions, 1)
		assert.Equal(t, "Clear", current.Conditions[0].Main)
	})

	t.Run("api error with provider message", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: respond(http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key."}`),
		}

		current, err := newClient(t, mockClient).CurrentWeather(ctx, endpoint)

		require.Nil(t, current)
		var apiErr *openweather.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Invalid API key.", apiErr.Message)
	})

	t.Run("api error with plain body", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusBadGateway, "bad gateway\n")}

		_, err := newClient(t, mockClient).CurrentWeather(ctx, endpoint)

		var apiErr *openweather.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "bad gateway", apiErr.Message)
		assert.Contains(t, err.Error(), "openweather API returned status 502")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, "invalid json")}

		current, err := newClient(t, mockClient).CurrentWeather(ctx, endpoint)

		require.Nil(t, current)
		require.ErrorContains(t, err, "failed to decode weather response")
	})

	t.Run("transport error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		_, err := newClient(t, mockClient).CurrentWeather(ctx, endpoint)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to execute weather request")
	})

	t.Run("empty endpoint", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, currentBody)}

		_, err := newClient(t, mockClient).CurrentWeather(ctx, "")

		require.ErrorIs(t, err, openweather.ErrEmptyEndpoint)
	})
}

func TestClient_ForecastWeather(t *testing.T) {
	var observed []string
	mockClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "/data/2.5/forecast", req.URL.Path)
			return respond(http.StatusOK, forecastBody)(req)
		},
	}
	client := newClient(t, mockClient)
	client.SetObserver(func(kind string, _ time.Duration) {
		observed = append(observed, kind)
	})

	forecast, err := client.ForecastWeather(t.Context(), "forecast?lat=0.0&lon=0.0&appid=k&units=imperial")

	require.NoError(t, err)
	require.NotNil(t, forecast)
	assert.Equal(t, "New York", forecast.City.Name)
	require.Len(t, forecast.List, 1)
	assert.InEpsilon(t, 0.2, forecast.List[0].Pop, 0.001)
	assert.Equal(t, []string{"forecast"}, observed)
}

func TestClient_AgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/weather":
			_, _ = w.Write([]byte(currentBody))
		case "/api/forecast":
			_, _ = w.Write([]byte(forecastBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := openweather.NewClient(server.URL+"/api", 2*time.Second, 0, slog.Default())
	require.NoError(t, err)

	current, err := client.CurrentWeather(t.Context(), "weather?lat=1.0&lon=2.0&appid=k&units=imperial")
	require.NoError(t, err)
	assert.Equal(t, int64(5128581), current.ID)

	forecast, err := client.ForecastWeather(t.Context(), "forecast?lat=1.0&lon=2.0&appid=k&units=imperial")
	require.NoError(t, err)
	assert.Equal(t, 1, forecast.Cnt)
}

func TestClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	mockClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, req.Context().Err()
		},
	}

	_, err := newClient(t, mockClient).CurrentWeather(ctx, "weather?lat=0.0&lon=0.0&appid=k&units=imperial")

	require.ErrorIs(t, err, context.Canceled)
}
