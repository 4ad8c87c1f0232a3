package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaichover/internal/types"
)

const sampleForecastJSON = `{
  "latitude": -23.55,
  "longitude": -46.63,
  "timezone": "America/Sao_Paulo",
  "utc_offset_seconds": -10800,
  "current": {"time": "2026-03-10T14:00", "temperature_2m": 22.4, "relative_humidity_2m": 81, "wind_speed_10m": 9.2, "wind_gusts_10m": null},
  "daily": {
    "time": ["2026-03-10", "2026-03-11"],
    "temperature_2m_max": [27.1, 25.0],
    "temperature_2m_min": [18.2, null],
    "precipitation_probability_max": [72, 35],
    "precipitation_sum": [4.3, 0.0]
  },
  "hourly": {"time": ["2026-03-10T00:00"], "temperature_2m": [19.0], "precipitation_probability": [10]}
}`

func newTestOpenMeteo(serverURL string) *OpenMeteoClient {
	return NewOpenMeteoClientWithBase(newTestBase(fastPolicy(1)), OpenMeteoConfig{
		ForecastURL:  serverURL + "/v1/forecast",
		GeocodingURL: serverURL + "/v1/search",
		Language:     "pt",
	})
}

func TestOpenMeteo_FetchForecastQuery(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleForecastJSON))
	}))
	defer server.Close()

	payload, err := newTestOpenMeteo(server.URL).FetchForecast(context.Background(), -23.55, -46.63)
	require.NoError(t, err)

	assert.Equal(t, "-23.55", got["latitude"])
	assert.Equal(t, "-46.63", got["longitude"])
	assert.Equal(t, forecastCurrentFields, got["current"])
	assert.Equal(t, forecastDailyFields, got["daily"])
	assert.Equal(t, forecastHourlyFields, got["hourly"])
	assert.Equal(t, "auto", got["timezone"])
	assert.Equal(t, "7", got["forecast_days"])
	assert.Equal(t, "0", got["past_days"])

	require.NotNil(t, payload.Current)
	require.NotNil(t, payload.Current.Temperature)
	assert.InDelta(t, 22.4, *payload.Current.Temperature, 1e-9)
	assert.Nil(t, payload.Current.WindGust)
	require.NotNil(t, payload.UTCOffsetSeconds)
	assert.Equal(t, -10800, *payload.UTCOffsetSeconds)
	assert.Nil(t, payload.Daily.TemperatureMin[1])
}

func TestOpenMeteo_FetchForecastNonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":true,"reason":"bad latitude"}`))
	}))
	defer server.Close()

	_, err := newTestOpenMeteo(server.URL).FetchForecast(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamWeather, types.CodeOf(err))
	assert.Equal(t, types.ErrCodeNetwork, types.WeatherErrorCode(err))
}

func TestOpenMeteo_FetchForecastMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current": `))
	}))
	defer server.Close()

	_, err := newTestOpenMeteo(server.URL).FetchForecast(context.Background(), 0, 0)
	assert.Equal(t, types.ErrCodeUpstreamWeather, types.CodeOf(err))
}

func TestOpenMeteo_SearchCities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Campinas", r.URL.Query().Get("name"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		assert.Equal(t, "pt", r.URL.Query().Get("language"))
		w.Write([]byte(`{"results":[{"id":3467865,"name":"Campinas","latitude":-22.9,"longitude":-47.06,"country":"Brasil","country_code":"BR","admin1":"São Paulo"}]}`))
	}))
	defer server.Close()

	got, err := newTestOpenMeteo(server.URL).SearchCities(context.Background(), "  Campinas ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3467865), got[0].ID)
	assert.Equal(t, "São Paulo", got[0].Admin1)
	assert.Equal(t, "BR", got[0].CountryCode)
}

func TestOpenMeteo_SearchCitiesNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generationtime_ms":0.5}`))
	}))
	defer server.Close()

	got, err := newTestOpenMeteo(server.URL).SearchCities(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestOpenMeteo_SearchCitiesBlankSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	got, err := newTestOpenMeteo(server.URL).SearchCities(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, calls.Load())
}

func TestOpenMeteo_SearchCitiesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestOpenMeteo(server.URL).SearchCities(context.Background(), "Recife")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeNetwork, types.WeatherErrorCode(err))
}

func TestNewOpenMeteoClientDefaults(t *testing.T) {
	c := NewOpenMeteoClient(&http.Client{Timeout: time.Second}, "ua", OpenMeteoConfig{})
	assert.Equal(t, openMeteoForecastURL, c.forecastURL)
	assert.Equal(t, openMeteoGeocodingURL, c.geocodingURL)
	assert.Equal(t, 7, c.forecastDays)
	assert.Equal(t, 5, c.searchResults)
}
