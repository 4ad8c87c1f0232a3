// Package config defines the configuration structure shared by the token
// directory API, the dispatch worker, and the terminal client. Configuration
// is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct defaults (Lowest)
//
// Each binary declares which optional sections it depends on through
// Config.Require; a missing requirement fails startup immediately.
package config

import (
	"time"

	"vaichover/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"vaichover"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Push          PushConfig
	Weather       WeatherConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Client        ClientConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// PublicAppURL is the click-through target for pushes without an explicit url.
	PublicAppURL string `envconfig:"PUBLIC_APP_URL" default:"https://vaichover.vercel.app" validate:"url"`
}

// DatabaseConfig holds the subscriber directory connection and pool tuning.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region           string `envconfig:"AWS_REGION" default:"us-east-1"`
	DispatchQueueURL string `envconfig:"SQS_DISPATCH" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// PushConfig holds the web-push provider settings. The four public fields
// are what a browser needs to obtain a device token; AccessToken is the
// server-side credential for the send API.
type PushConfig struct {
	PublicKey         string       `envconfig:"PUSH_PUBLIC_KEY"`
	FirebaseAPIKey    string       `envconfig:"FIREBASE_API_KEY"`
	FirebaseProjectID string       `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseAppID     string       `envconfig:"FIREBASE_APP_ID"`
	AccessToken       SecretString `envconfig:"FIREBASE_ACCESS_TOKEN"`
	Endpoint          string       `envconfig:"FCM_ENDPOINT" default:"https://fcm.googleapis.com" validate:"url"`

	DefaultTitle string `envconfig:"PUSH_DEFAULT_TITLE" default:"Será que vai chover?"`
	DefaultBody  string `envconfig:"PUSH_DEFAULT_BODY" default:"Chance alta de chuva detectada. Abra o app para conferir a previsão detalhada."`

	// DeviceToken is a provider token issued to this device out of band.
	// The terminal client has no browser to mint one, so it is supplied here.
	DeviceToken SecretString `envconfig:"PUSH_DEVICE_TOKEN"`
}

// Configured reports whether every value needed to request a device token
// is present. It is evaluated once at startup.
func (p PushConfig) Configured() bool {
	return p.PublicKey != "" && p.FirebaseAPIKey != "" && p.FirebaseProjectID != "" && p.FirebaseAppID != ""
}

// WeatherConfig holds upstream weather and geocoding endpoints.
type WeatherConfig struct {
	ForecastURL       string        `envconfig:"FORECAST_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
	GeocodingURL      string        `envconfig:"GEOCODING_URL" default:"https://geocoding-api.open-meteo.com/v1/search" validate:"url"`
	ReverseGeocodeURL string        `envconfig:"REVERSE_GEOCODE_URL" default:"https://api.bigdatacloud.net/data/reverse-geocode-client" validate:"url"`
	Language          string        `envconfig:"GEOCODING_LANGUAGE" default:"pt" validate:"bcp47"`
	ForecastDays      int           `envconfig:"FORECAST_DAYS" default:"7" validate:"min=1,max=16"`
	SearchResults     int           `envconfig:"SEARCH_RESULTS" default:"5" validate:"min=1,max=100"`
	HTTPTimeout       time.Duration `envconfig:"WEATHER_HTTP_TIMEOUT" default:"10s"`
	UserAgent         string        `envconfig:"WEATHER_USER_AGENT" default:"VaiChover/1.0"`
}

// SecurityConfig holds access control for the token directory service.
type SecurityConfig struct {
	// DispatchKeyHash is a bcrypt hash. When set, send-notification and
	// broadcast require "Authorization: Bearer <key>".
	DispatchKeyHash    SecretString `envconfig:"DISPATCH_KEY_HASH"`
	CorsAllowedOrigins []string     `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"VaiChover"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// ClientConfig holds settings for the terminal dashboard.
type ClientConfig struct {
	StatePath    string        `envconfig:"CLIENT_STATE_PATH" default:"vaichover.db"`
	DirectoryURL string        `envconfig:"TOKEN_DIRECTORY_URL" validate:"omitempty,url"`
	Latitude     *float64      `envconfig:"DEVICE_LATITUDE" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64      `envconfig:"DEVICE_LONGITUDE" validate:"omitempty,min=-180,max=180"`
	GeoTimeout   time.Duration `envconfig:"GEO_TIMEOUT" default:"10s"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Requirement names an optional section a binary cannot run without.
type Requirement string

const (
	RequireDatabase      Requirement = "database"
	RequireDispatchQueue Requirement = "dispatch_queue"
	RequirePushSender    Requirement = "push_sender"
)

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
