package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaichover/internal/external"
	"vaichover/internal/types"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func series(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for idx := range vs {
		out[idx] = f(vs[idx])
	}
	return out
}

var fixedNow = time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

func basePayload() *external.ForecastPayload {
	return &external.ForecastPayload{
		Timezone:         "America/Sao_Paulo",
		UTCOffsetSeconds: i(-10800),
		Current: &external.CurrentConditions{
			Time:        "2026-03-10T14:00",
			Temperature: f(22),
			Humidity:    f(81),
		},
		Daily: &external.DailySeries{
			Time:                        []string{"2026-03-10", "2026-03-11"},
			TemperatureMax:              series(27, 25),
			TemperatureMin:              series(18, 17),
			PrecipitationProbabilityMax: series(72, 35),
			PrecipitationSum:            series(4.3, 0),
		},
	}
}

func TestNormalizeReport_CurrentAndToday(t *testing.T) {
	point := types.GeoPoint{Latitude: -23.55, Longitude: -46.63, Label: "São Paulo"}

	report, err := NormalizeReport(basePayload(), point, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 22.0, report.Temperature)
	assert.Equal(t, 72.0, report.RainProbability)
	assert.Equal(t, 4.3, report.PrecipitationSum)
	assert.True(t, report.WillRain)
	assert.Equal(t, "America/Sao_Paulo", report.Timezone)
	assert.Equal(t, point, report.Location)
	require.NotNil(t, report.Humidity)
	assert.Equal(t, 81.0, *report.Humidity)
	assert.Nil(t, report.WindGust)

	require.Len(t, report.Forecast, 2)
	assert.True(t, report.Forecast[0].WillRain)
	assert.False(t, report.Forecast[1].WillRain)
}

func TestNormalizeReport_UpdatedAtInPayloadZone(t *testing.T) {
	report, err := NormalizeReport(basePayload(), types.GeoPoint{}, fixedNow)
	require.NoError(t, err)

	assert.True(t, report.UpdatedAt.Equal(time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)),
		"14:00 in São Paulo is 17:00 UTC, got %s", report.UpdatedAt)
}

func TestNormalizeReport_MissingCurrentUsesNow(t *testing.T) {
	p := basePayload()
	p.Current.Time = ""
	report, err := NormalizeReport(p, types.GeoPoint{}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, report.UpdatedAt)
}

func TestNormalizeReport_RejectsMissingTemperature(t *testing.T) {
	tests := []struct {
		name    string
		payload *external.ForecastPayload
	}{
		{"nil payload", nil},
		{"no current block", &external.ForecastPayload{Timezone: "UTC"}},
		{"null temperature", &external.ForecastPayload{Current: &external.CurrentConditions{Time: "2026-03-10T14:00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeReport(tt.payload, types.GeoPoint{}, fixedNow)
			require.Error(t, err)
			assert.Equal(t, types.ErrCodeNetwork, types.CodeOf(err))
		})
	}
}

func TestNormalizeReport_DefaultsWithoutDaily(t *testing.T) {
	p := basePayload()
	p.Daily = nil
	report, err := NormalizeReport(p, types.GeoPoint{}, fixedNow)
	require.NoError(t, err)

	assert.Zero(t, report.RainProbability)
	assert.Zero(t, report.PrecipitationSum)
	assert.False(t, report.WillRain)
	assert.NotNil(t, report.Forecast)
	assert.Empty(t, report.Forecast)
}

func TestNormalizeReport_RainThresholdBoundary(t *testing.T) {
	p := basePayload()
	p.Daily.PrecipitationProbabilityMax = series(40, 39)
	report, err := NormalizeReport(p, types.GeoPoint{}, fixedNow)
	require.NoError(t, err)

	assert.True(t, report.WillRain)
	assert.True(t, report.Forecast[0].WillRain)
	assert.False(t, report.Forecast[1].WillRain)
}

func TestBuildForecast_DropsPastAndCaps(t *testing.T) {
	p := basePayload()
	p.Daily = &external.DailySeries{
		Time:                        []string{"2026-03-09", "2026-03-10", "2026-03-11", "2026-03-12", "2026-03-13", "2026-03-14", "2026-03-15"},
		PrecipitationProbabilityMax: series(90, 10, 20, 30, 40, 50, 60),
	}

	got := buildForecast(p, fixedNow)
	require.Len(t, got, types.ForecastDayLimit)

	dates := make([]string, len(got))
	for idx, d := range got {
		dates[idx] = d.Date
	}
	assert.Equal(t, []string{"2026-03-10", "2026-03-11", "2026-03-12", "2026-03-13", "2026-03-14"}, dates)
	assert.Equal(t, 0.0, got[0].MinTemp, "missing min series defaults to zero")
}

func TestBuildForecast_SortsOutOfOrderDays(t *testing.T) {
	p := basePayload()
	p.Daily = &external.DailySeries{
		Time:                        []string{"2026-03-15", "2026-03-11", "2026-03-09", "2026-03-13", "2026-03-10", "2026-03-14", "2026-03-12"},
		PrecipitationProbabilityMax: series(15, 11, 9, 13, 10, 14, 12),
	}

	got := buildForecast(p, fixedNow)
	require.Len(t, got, types.ForecastDayLimit)

	dates := make([]string, len(got))
	for idx, d := range got {
		dates[idx] = d.Date
	}
	assert.Equal(t, []string{"2026-03-10", "2026-03-11", "2026-03-12", "2026-03-13", "2026-03-14"}, dates)
	assert.Equal(t, 11.0, got[1].PrecipitationProbability, "values stay with their date")
}

func TestBaseDate_Fallbacks(t *testing.T) {
	// 01:30 UTC on the 11th is still the 10th at UTC-3.
	now := time.Date(2026, 3, 11, 1, 30, 0, 0, time.UTC)

	t.Run("current time wins", func(t *testing.T) {
		assert.Equal(t, "2026-03-10", baseDate(basePayload(), now))
	})

	t.Run("utc offset", func(t *testing.T) {
		p := basePayload()
		p.Current = nil
		assert.Equal(t, "2026-03-10", baseDate(p, now))
	})

	t.Run("timezone name", func(t *testing.T) {
		p := basePayload()
		p.Current = nil
		p.UTCOffsetSeconds = nil
		assert.Equal(t, "2026-03-10", baseDate(p, now))
	})

	t.Run("unknown timezone falls back to utc", func(t *testing.T) {
		p := &external.ForecastPayload{Timezone: "Mars/Olympus_Mons"}
		assert.Equal(t, "2026-03-11", baseDate(p, now))
	})
}

func TestBuildHourly_CapsAndZeroFills(t *testing.T) {
	times := make([]string, 20)
	for idx := range times {
		times[idx] = time.Date(2026, 3, 10, idx, 0, 0, 0, time.UTC).Format("2006-01-02T15:04")
	}
	p := basePayload()
	p.Hourly = &external.HourlySeries{
		Time:                     times,
		Temperature:              []*float64{f(19), nil},
		PrecipitationProbability: series(10),
	}

	got := buildHourly(p)
	require.Len(t, got, types.HourlyPointLimit)
	assert.Equal(t, 19.0, got[0].Temperature)
	assert.Equal(t, 0.0, got[1].Temperature)
	assert.Equal(t, 10.0, got[0].PrecipitationProbability)
	assert.Equal(t, 0.0, got[5].PrecipitationProbability)
}
