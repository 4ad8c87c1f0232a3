package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vaichover/internal/types"
)

const (
	openMeteoForecastURL  = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	forecastCurrentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,wind_gusts_10m"
	forecastDailyFields   = "temperature_2m_max,temperature_2m_min,precipitation_probability_max,precipitation_sum"
	forecastHourlyFields  = "temperature_2m,precipitation_probability"
)

// ForecastPayload is the subset of the Open-Meteo forecast response the
// gateway consumes. Series entries are pointers because the API emits null
// for hours or days a model does not cover.
type ForecastPayload struct {
	Latitude         float64            `json:"latitude"`
	Longitude        float64            `json:"longitude"`
	Timezone         string             `json:"timezone"`
	UTCOffsetSeconds *int               `json:"utc_offset_seconds"`
	Current          *CurrentConditions `json:"current"`
	Daily            *DailySeries       `json:"daily"`
	Hourly           *HourlySeries      `json:"hourly"`
}

// CurrentConditions is the "current" block. Time is local wall-clock time in
// the payload timezone, formatted "2006-01-02T15:04".
type CurrentConditions struct {
	Time        string   `json:"time"`
	Temperature *float64 `json:"temperature_2m"`
	Humidity    *float64 `json:"relative_humidity_2m"`
	WindSpeed   *float64 `json:"wind_speed_10m"`
	WindGust    *float64 `json:"wind_gusts_10m"`
}

// DailySeries is the column-oriented "daily" block.
type DailySeries struct {
	Time                        []string   `json:"time"`
	TemperatureMax              []*float64 `json:"temperature_2m_max"`
	TemperatureMin              []*float64 `json:"temperature_2m_min"`
	PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	PrecipitationSum            []*float64 `json:"precipitation_sum"`
}

// HourlySeries is the column-oriented "hourly" block.
type HourlySeries struct {
	Time                     []string   `json:"time"`
	Temperature              []*float64 `json:"temperature_2m"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
}

type geocodingResponse struct {
	Results []types.CitySuggestion `json:"results"`
}

// OpenMeteoConfig holds the settings for OpenMeteoClient.
type OpenMeteoConfig struct {
	ForecastURL   string // defaults to the public forecast endpoint
	GeocodingURL  string // defaults to the public geocoding endpoint
	Language      string // geocoding result language, e.g. "pt"
	ForecastDays  int
	SearchResults int
	Logger        *slog.Logger
}

// OpenMeteoClient implements ForecastProvider and CitySearcher against the
// keyless Open-Meteo APIs.
type OpenMeteoClient struct {
	base          *BaseClient
	forecastURL   string
	geocodingURL  string
	language      string
	forecastDays  int
	searchResults int
	logger        *slog.Logger
}

// NewOpenMeteoClient creates an OpenMeteoClient backed by its own breaker.
func NewOpenMeteoClient(httpClient *http.Client, userAgent string, cfg OpenMeteoConfig) *OpenMeteoClient {
	base := NewBaseClient(
		httpClient,
		"open-meteo",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		userAgent,
	)
	return NewOpenMeteoClientWithBase(base, cfg)
}

// NewOpenMeteoClientWithBase creates an OpenMeteoClient with a pre-configured
// BaseClient, letting tests disable sleeping between retries.
func NewOpenMeteoClientWithBase(base *BaseClient, cfg OpenMeteoConfig) *OpenMeteoClient {
	c := &OpenMeteoClient{
		base:          base,
		forecastURL:   cfg.ForecastURL,
		geocodingURL:  cfg.GeocodingURL,
		language:      cfg.Language,
		forecastDays:  cfg.ForecastDays,
		searchResults: cfg.SearchResults,
		logger:        cfg.Logger,
	}
	if c.forecastURL == "" {
		c.forecastURL = openMeteoForecastURL
	}
	if c.geocodingURL == "" {
		c.geocodingURL = openMeteoGeocodingURL
	}
	if c.language == "" {
		c.language = "pt"
	}
	if c.forecastDays <= 0 {
		c.forecastDays = 7
	}
	if c.searchResults <= 0 {
		c.searchResults = 5
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// FetchForecast requests current, daily and hourly data for the coordinate,
// letting Open-Meteo resolve the local timezone.
func (c *OpenMeteoClient) FetchForecast(ctx context.Context, lat, lon float64) (*ForecastPayload, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(lat))
	q.Set("longitude", formatCoord(lon))
	q.Set("current", forecastCurrentFields)
	q.Set("daily", forecastDailyFields)
	q.Set("hourly", forecastHourlyFields)
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(c.forecastDays))
	q.Set("past_days", "0")

	var payload ForecastPayload
	if err := c.getJSON(ctx, c.forecastURL+"?"+q.Encode(), "FetchForecast", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchCities looks up cities by name. A blank query returns an empty
// result without calling the API.
func (c *OpenMeteoClient) SearchCities(ctx context.Context, query string) ([]types.CitySuggestion, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []types.CitySuggestion{}, nil
	}

	q := url.Values{}
	q.Set("name", trimmed)
	q.Set("count", strconv.Itoa(c.searchResults))
	q.Set("language", c.language)

	var payload geocodingResponse
	if err := c.getJSON(ctx, c.geocodingURL+"?"+q.Encode(), "SearchCities", &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		return []types.CitySuggestion{}, nil
	}
	return payload.Results, nil
}

func (c *OpenMeteoClient) getJSON(ctx context.Context, reqURL, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Open-Meteo request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return wrapUpstream("Open-Meteo", operation, types.ErrCodeUpstreamWeather, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "Open-Meteo API error",
			"operation", operation,
			"status_code", resp.StatusCode,
			"response_body", string(body),
		)
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("Open-Meteo %s returned %d", operation, resp.StatusCode),
			nil,
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("failed to decode Open-Meteo %s response", operation),
			err,
		)
	}
	return nil
}

// formatCoord renders a coordinate without exponent notation or trailing zeros.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// wrapUpstream converts errors from BaseClient.Do into provider-specific
// AppErrors. Existing AppErrors keep their code; anything else gets fallback.
func wrapUpstream(provider, operation string, fallback types.ErrorCode, err error) error {
	if appErr, ok := err.(*types.AppError); ok {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("%s %s: %s", provider, operation, appErr.Message),
			appErr.Err,
		)
	}
	return types.NewAppError(fallback, fmt.Sprintf("%s %s failed", provider, operation), err)
}

var (
	_ ForecastProvider = (*OpenMeteoClient)(nil)
	_ CitySearcher     = (*OpenMeteoClient)(nil)
)
