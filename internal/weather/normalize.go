package weather

import (
	"slices"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for payload timezones on minimal images

	"vaichover/internal/external"
	"vaichover/internal/types"
)

const (
	dateLayout      = "2006-01-02"
	localTimeLayout = "2006-01-02T15:04"
)

// NormalizeReport converts a raw forecast payload into a WeatherReport for
// point. now is used when the payload carries no current timestamp.
//
// A payload without current conditions or without a current temperature is
// rejected; every other absent value defaults to zero.
func NormalizeReport(payload *external.ForecastPayload, point types.GeoPoint, now time.Time) (types.WeatherReport, error) {
	if payload == nil || payload.Current == nil || payload.Current.Temperature == nil {
		return types.WeatherReport{}, types.NewAppError(
			types.ErrCodeNetwork,
			"Resposta inesperada da API de clima",
			nil,
		)
	}

	var rainProbability, precipitationSum float64
	if d := payload.Daily; d != nil {
		rainProbability = valueAt(d.PrecipitationProbabilityMax, 0)
		precipitationSum = valueAt(d.PrecipitationSum, 0)
	}

	return types.WeatherReport{
		Temperature:      *payload.Current.Temperature,
		RainProbability:  rainProbability,
		PrecipitationSum: precipitationSum,
		WillRain:         rainProbability >= types.RainThreshold,
		Humidity:         payload.Current.Humidity,
		WindSpeed:        payload.Current.WindSpeed,
		WindGust:         payload.Current.WindGust,
		Timezone:         payload.Timezone,
		UpdatedAt:        updatedAt(payload, now),
		Location:         point,
		Forecast:         buildForecast(payload, now),
		Hourly:           buildHourly(payload),
	}, nil
}

// buildForecast keeps the days on or after the payload's current date in
// ascending date order, capped at types.ForecastDayLimit.
func buildForecast(payload *external.ForecastPayload, now time.Time) []types.DailyForecast {
	out := []types.DailyForecast{}
	d := payload.Daily
	if d == nil {
		return out
	}

	base := baseDate(payload, now)
	baseT, baseErr := time.Parse(dateLayout, base)

	for i, date := range d.Time {
		if dayT, err := time.Parse(dateLayout, date); err == nil && baseErr == nil {
			if dayT.Before(baseT) {
				continue
			}
		} else if date < base {
			continue
		}

		prob := valueAt(d.PrecipitationProbabilityMax, i)
		out = append(out, types.DailyForecast{
			Date:                     date,
			MinTemp:                  valueAt(d.TemperatureMin, i),
			MaxTemp:                  valueAt(d.TemperatureMax, i),
			PrecipitationProbability: prob,
			WillRain:                 prob >= types.RainThreshold,
		})
	}

	// YYYY-MM-DD compares chronologically as text.
	slices.SortStableFunc(out, func(a, b types.DailyForecast) int {
		return strings.Compare(a.Date, b.Date)
	})
	if len(out) > types.ForecastDayLimit {
		out = out[:types.ForecastDayLimit]
	}
	return out
}

// baseDate is the calendar day the forecast is anchored to: the date part of
// current.time, else today at the payload's UTC offset, else today in the
// payload timezone, else today in UTC.
func baseDate(payload *external.ForecastPayload, now time.Time) string {
	if payload.Current != nil && len(payload.Current.Time) >= len(dateLayout) {
		return payload.Current.Time[:len(dateLayout)]
	}
	if payload.UTCOffsetSeconds != nil {
		return now.UTC().Add(time.Duration(*payload.UTCOffsetSeconds) * time.Second).Format(dateLayout)
	}
	tz := payload.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return now.In(loc).Format(dateLayout)
	}
	return now.UTC().Format(dateLayout)
}

// updatedAt interprets current.time as wall-clock time in the payload zone.
func updatedAt(payload *external.ForecastPayload, now time.Time) time.Time {
	if payload.Current == nil || payload.Current.Time == "" {
		return now
	}
	t, err := time.ParseInLocation(localTimeLayout, payload.Current.Time, payloadLocation(payload))
	if err != nil {
		return now
	}
	return t
}

func payloadLocation(payload *external.ForecastPayload) *time.Location {
	if payload.Timezone != "" {
		if loc, err := time.LoadLocation(payload.Timezone); err == nil {
			return loc
		}
	}
	if payload.UTCOffsetSeconds != nil {
		return time.FixedZone(payload.Timezone, *payload.UTCOffsetSeconds)
	}
	return time.UTC
}

func buildHourly(payload *external.ForecastPayload) []types.HourlyPoint {
	h := payload.Hourly
	if h == nil {
		return []types.HourlyPoint{}
	}
	n := min(len(h.Time), types.HourlyPointLimit)
	out := make([]types.HourlyPoint, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.HourlyPoint{
			Time:                     h.Time[i],
			Temperature:              valueAt(h.Temperature, i),
			PrecipitationProbability: valueAt(h.PrecipitationProbability, i),
		})
	}
	return out
}

// valueAt returns series[i], or 0 when the index is missing or null.
func valueAt(series []*float64, i int) float64 {
	if i < 0 || i >= len(series) || series[i] == nil {
		return 0
	}
	return *series[i]
}
