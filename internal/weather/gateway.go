// Package weather is the Weather Data Gateway: it fetches forecast and
// geocoding data through the external clients and normalises it into the
// canonical types.WeatherReport. Every failure leaving this package is an
// AppError carrying one of the user-facing dashboard codes.
package weather

import (
	"context"

	"vaichover/internal/external"
	"vaichover/internal/types"
)

// Gateway composes the forecast, search and reverse-geocoding providers.
type Gateway struct {
	forecast external.ForecastProvider
	cities   external.CitySearcher
	reverse  external.ReverseGeocoder
	clock    types.Clock
	logger   types.Logger
}

// NewGateway creates a Gateway. A nil clock uses the wall clock; a nil logger
// discards output.
func NewGateway(
	forecast external.ForecastProvider,
	cities external.CitySearcher,
	reverse external.ReverseGeocoder,
	clock types.Clock,
	logger types.Logger,
) *Gateway {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Gateway{
		forecast: forecast,
		cities:   cities,
		reverse:  reverse,
		clock:    clock,
		logger:   logger,
	}
}

// FetchReport fetches and normalises the report for a coordinate. label, when
// non-empty, is carried on the report's location.
func (g *Gateway) FetchReport(ctx context.Context, lat, lon float64, label string) (types.WeatherReport, error) {
	if !types.ValidCoordinates(lat, lon) {
		return types.WeatherReport{}, types.NewAppErrorWithDetails(
			types.ErrCodeUnknown,
			"Coordenadas inválidas",
			nil,
			map[string]any{"latitude": lat, "longitude": lon},
		)
	}

	payload, err := g.forecast.FetchForecast(ctx, lat, lon)
	if err != nil {
		return types.WeatherReport{}, toUserError(err, "Não foi possível consultar a API da Open-Meteo")
	}

	report, err := NormalizeReport(payload, types.GeoPoint{Latitude: lat, Longitude: lon, Label: label}, g.clock.Now())
	if err != nil {
		return types.WeatherReport{}, err
	}
	return report, nil
}

// ReverseGeocode returns a label for the coordinate. Failures are logged and
// reported as an empty label; they never reach the caller.
func (g *Gateway) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	if g.reverse == nil {
		return ""
	}
	label, err := g.reverse.ReverseGeocode(ctx, lat, lon)
	if !(types.Result{Op: "reverse_geocode", Err: err}).Log(g.logger).OK() {
		return ""
	}
	return label
}

// SearchCities returns ordered suggestions for query. A blank query yields an
// empty result without a network call.
func (g *Gateway) SearchCities(ctx context.Context, query string) ([]types.CitySuggestion, error) {
	results, err := g.cities.SearchCities(ctx, query)
	if err != nil {
		return nil, toUserError(err, "Não foi possível buscar essa cidade agora.")
	}
	return results, nil
}

// toUserError folds err into a dashboard code and replaces the message with
// one suitable for display. The original error stays on the chain.
func toUserError(err error, message string) error {
	return types.NewAppError(types.WeatherErrorCode(err), message, err)
}
