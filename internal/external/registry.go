package external

import (
	"log/slog"
	"net/http"
	"time"

	"vaichover/internal/config"
)

// ---------------------------------------------------------------------------
// Client Registry
//
// Central factory that instantiates the vendor clients from configuration.
// Weather and geocoding APIs are keyless and always real. The push sender
// falls back to a stub in local mode when FCM credentials are absent, and the
// token directory when no TOKEN_DIRECTORY_URL is configured.
// ---------------------------------------------------------------------------

// ClientRegistry holds all external service client interfaces.
type ClientRegistry struct {
	Forecast  ForecastProvider
	Cities    CitySearcher
	Reverse   ReverseGeocoder
	Push      PushSender
	Directory TokenDirectory
}

// NewClientRegistry initializes all external service clients.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Weather.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	weatherHTTP := &http.Client{Timeout: timeout}

	meteo := NewOpenMeteoClient(weatherHTTP, cfg.Weather.UserAgent, OpenMeteoConfig{
		ForecastURL:   cfg.Weather.ForecastURL,
		GeocodingURL:  cfg.Weather.GeocodingURL,
		Language:      cfg.Weather.Language,
		ForecastDays:  cfg.Weather.ForecastDays,
		SearchResults: cfg.Weather.SearchResults,
		Logger:        logger.With("client", "open-meteo"),
	})

	reg := &ClientRegistry{
		Forecast: meteo,
		Cities:   meteo,
		Reverse: NewBigDataCloudClient(weatherHTTP, cfg.Weather.ReverseGeocodeURL,
			cfg.Weather.Language, cfg.Weather.UserAgent, logger.With("client", "bigdatacloud")),
	}

	if cfg.Client.DirectoryURL == "" {
		logger.Info("initializing token directory in STUB mode")
		reg.Directory = NewStubTokenDirectory(logger.With("mode", "stub"))
	} else {
		reg.Directory = NewDirectoryClient(&http.Client{Timeout: 10 * time.Second},
			cfg.Client.DirectoryURL, cfg.Weather.UserAgent, logger.With("client", "token-directory"))
	}

	if cfg.Push.FirebaseProjectID == "" || !cfg.Push.AccessToken.IsSet() {
		if cfg.Environment == "local" {
			logger.Info("initializing push sender in STUB mode", "environment", cfg.Environment)
			reg.Push = NewStubPushSender(logger.With("mode", "stub"))
			return reg
		}
	}

	reg.Push = NewFCMClient(&http.Client{Timeout: 10 * time.Second}, FCMConfig{
		ProjectID:   cfg.Push.FirebaseProjectID,
		AccessToken: cfg.Push.AccessToken,
		BaseURL:     cfg.Push.Endpoint,
		Logger:      logger.With("client", "fcm"),
	})
	return reg
}
