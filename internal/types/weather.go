package types

import "time"

// RainThreshold is the fixed rain-probability percentage at or above which a
// report (or a forecast day) is flagged as "will rain". It is independent of
// the user's alert threshold.
const RainThreshold = 40

// ForecastDayLimit caps the number of daily entries carried by a report.
const ForecastDayLimit = 5

// HourlyPointLimit caps the number of hourly entries carried by a report.
const HourlyPointLimit = 12

// GeoPoint is a coordinate pair with an optional human-readable label.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Label     string  `json:"label,omitempty"`
}

// DailyForecast is one calendar day of the short-term outlook.
// Date is the local calendar day as YYYY-MM-DD.
type DailyForecast struct {
	Date                     string  `json:"date"`
	MinTemp                  float64 `json:"min_temp"`
	MaxTemp                  float64 `json:"max_temp"`
	PrecipitationProbability float64 `json:"precipitation_probability"`
	WillRain                 bool    `json:"will_rain"`
}

// HourlyPoint is a single hour of the near-term outlook.
type HourlyPoint struct {
	Time                     string  `json:"time"`
	Temperature              float64 `json:"temperature"`
	PrecipitationProbability float64 `json:"precipitation_probability"`
}

// WeatherReport is the normalized weather snapshot for a location.
// Reports are immutable once built; a refresh replaces the whole value.
type WeatherReport struct {
	Temperature      float64         `json:"temperature"`
	RainProbability  float64         `json:"rain_probability"`
	PrecipitationSum float64         `json:"precipitation_sum"`
	WillRain         bool            `json:"will_rain"`
	Humidity         *float64        `json:"humidity,omitempty"`
	WindSpeed        *float64        `json:"wind_speed,omitempty"`
	WindGust         *float64        `json:"wind_gust,omitempty"`
	Timezone         string          `json:"timezone"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Location         GeoPoint        `json:"location"`
	Forecast         []DailyForecast `json:"forecast"`
	Hourly           []HourlyPoint   `json:"hourly,omitempty"`
}

// WithLabel returns a copy of the report whose location carries label.
// An empty label returns the report unchanged.
func (r WeatherReport) WithLabel(label string) WeatherReport {
	if label == "" {
		return r
	}
	r.Location.Label = label
	return r
}

// CitySuggestion is one result of a city-name search.
type CitySuggestion struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Admin1      string  `json:"admin1,omitempty"`
	Admin2      string  `json:"admin2,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
}

// SavedLocation is a location-history entry. Label is the unique key.
type SavedLocation struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
