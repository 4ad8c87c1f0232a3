package external

import (
	"context"

	"vaichover/internal/types"
)

// ---------------------------------------------------------------------------
// Weather (Open-Meteo)
// ---------------------------------------------------------------------------

// ForecastProvider fetches the raw forecast payload for a coordinate.
// Normalisation into a types.WeatherReport happens in the weather package.
type ForecastProvider interface {
	FetchForecast(ctx context.Context, lat, lon float64) (*ForecastPayload, error)
}

// ---------------------------------------------------------------------------
// Geocoding (Open-Meteo search, BigDataCloud reverse)
// ---------------------------------------------------------------------------

// CitySearcher resolves a free-text city name into ordered suggestions.
type CitySearcher interface {
	SearchCities(ctx context.Context, query string) ([]types.CitySuggestion, error)
}

// ReverseGeocoder resolves a coordinate into a display label.
// An empty label with a nil error means the provider had nothing useful.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// ---------------------------------------------------------------------------
// Push delivery (FCM) and the token directory
// ---------------------------------------------------------------------------

// PushSender delivers a single push message to the provider's send API.
// Returns the provider's message name on success.
type PushSender interface {
	Send(ctx context.Context, msg types.PushMessage) (string, error)
}

// TokenDirectory is the client view of the remote subscriber directory.
type TokenDirectory interface {
	Register(ctx context.Context, token string) error
	Unregister(ctx context.Context, token string) error
}
