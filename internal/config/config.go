package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the weather service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port for the monitoring server.
// - APIKey: The OpenWeather API key appended to every request.
// - BaseURL: The OpenWeather API root the endpoints are resolved against.
// - Units: The unit system requested from the API.
// - RefreshInterval: The duration between fetch cycles.
// - HTTPTimeout: The timeout of a single HTTP request.
// - RateLimit: Requests per second allowed towards the weather API.
// - Location: The coordinates (or address) the weather is fetched for.
// - Connectivity: Network probe settings.
// - Geocoder: Provider used to resolve Location.Address.
// - Database: Optional PostgreSQL snapshot storage.
type Config struct {
	Env             string             `mapstructure:"env"`
	Port            int                `mapstructure:"port"`
	APIKey          string             `mapstructure:"api_key"`
	BaseURL         string             `mapstructure:"base_url"`
	Units           string             `mapstructure:"units"`
	RefreshInterval time.Duration      `mapstructure:"refresh_interval"`
	HTTPTimeout     time.Duration      `mapstructure:"http_timeout"`
	RateLimit       int                `mapstructure:"rate_limit"`
	Location        LocationConfig     `mapstructure:"location"`
	Connectivity    ConnectivityConfig `mapstructure:"connectivity"`
	Geocoder        GeocoderConfig     `mapstructure:"geocoder"`
	Database        PostgresConfig     `mapstructure:"postgres"`
}

// LocationConfig holds the location to fetch weather for. A non-empty Address
// is geocoded at startup and overrides the coordinates.
type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Address   string  `mapstructure:"address"`
}

// ConnectivityConfig holds the network probe settings.
type ConnectivityConfig struct {
	Target   string        `mapstructure:"target"`   // host:port dialed by the probe
	Interval time.Duration `mapstructure:"interval"` // time between probes
	Timeout  time.Duration `mapstructure:"timeout"`  // dial timeout
}

// GeocoderConfig selects the geocoding provider.
type GeocoderConfig struct {
	Type   string `mapstructure:"type"`    // google or nominatim
	APIKey string `mapstructure:"api_key"` // required for google
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
// Snapshot storage is disabled when Host is empty.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"db_name"`
}

// Enabled reports whether a database host was configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// MustLoad loads the configuration from .env, an optional YAML file named by
// NIMBUS_CONFIG and NIMBUS_* environment variables, in increasing priority.
// It panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NIMBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, ok := os.LookupEnv("NIMBUS_CONFIG"); ok && path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("failed to parse configuration")
	}

	if cfg.RefreshInterval <= 0 {
		panic("refresh interval must be positive")
	}

	if cfg.Connectivity.Interval <= 0 {
		panic("connectivity interval must be positive")
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("port", 8080)
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "https://api.openweathermap.org/data/2.5/")
	v.SetDefault("units", "imperial")
	v.SetDefault("refresh_interval", "10m")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("rate_limit", 1)
	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("location.address", "")
	v.SetDefault("connectivity.target", "api.openweathermap.org:443")
	v.SetDefault("connectivity.interval", "30s")
	v.SetDefault("connectivity.timeout", "5s")
	v.SetDefault("geocoder.type", "nominatim")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "")
}
