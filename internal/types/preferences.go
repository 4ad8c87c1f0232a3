package types

import (
	"encoding/json"
	"time"
)

// TemperatureUnit is the display unit chosen by the user.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "celsius"
	UnitFahrenheit TemperatureUnit = "fahrenheit"
)

// Symbol returns the display suffix for the unit.
func (u TemperatureUnit) Symbol() string {
	if u == UnitFahrenheit {
		return "°F"
	}
	return "°C"
}

// Alert threshold bounds, in percent.
const (
	MinAlertThreshold = 20
	MaxAlertThreshold = 100
)

// AlertPreferences holds the user's rain-alert settings and the cooldown
// watermark. The Preference Store is its only writer.
type AlertPreferences struct {
	Enabled           bool            `json:"enabled"`
	Threshold         int             `json:"threshold" validate:"min=20,max=100"`
	Unit              TemperatureUnit `json:"unit" validate:"oneof=celsius fahrenheit"`
	QuietHoursEnabled bool            `json:"quietHoursEnabled"`
	QuietHoursStart   string          `json:"quietHoursStart" validate:"hhmm"`
	QuietHoursEnd     string          `json:"quietHoursEnd" validate:"hhmm"`
	LastNotifiedAt    *time.Time      `json:"lastNotifiedAt,omitempty"`
}

// DefaultAlertPreferences returns the settings used when nothing is stored.
func DefaultAlertPreferences() AlertPreferences {
	return AlertPreferences{
		Enabled:           false,
		Threshold:         60,
		Unit:              UnitCelsius,
		QuietHoursEnabled: false,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "06:00",
	}
}

// Normalize clamps the threshold into range and repairs an unknown unit or
// an unparseable quiet-hours bound.
func (p AlertPreferences) Normalize() AlertPreferences {
	defaults := DefaultAlertPreferences()
	switch {
	case p.Threshold < MinAlertThreshold:
		p.Threshold = MinAlertThreshold
	case p.Threshold > MaxAlertThreshold:
		p.Threshold = MaxAlertThreshold
	}
	if p.Unit != UnitCelsius && p.Unit != UnitFahrenheit {
		p.Unit = UnitCelsius
	}
	if _, err := ParseClockTime(p.QuietHoursStart); err != nil {
		p.QuietHoursStart = defaults.QuietHoursStart
	}
	if _, err := ParseClockTime(p.QuietHoursEnd); err != nil {
		p.QuietHoursEnd = defaults.QuietHoursEnd
	}
	return p
}

// PreferencesPatch is a partial update. Nil fields are left untouched.
// LastNotifiedAt is intentionally absent: the watermark only moves through
// the store's StampNotified.
type PreferencesPatch struct {
	Enabled           *bool            `json:"enabled,omitempty"`
	Threshold         *int             `json:"threshold,omitempty" validate:"omitempty,min=20,max=100"`
	Unit              *TemperatureUnit `json:"unit,omitempty" validate:"omitempty,oneof=celsius fahrenheit"`
	QuietHoursEnabled *bool            `json:"quietHoursEnabled,omitempty"`
	QuietHoursStart   *string          `json:"quietHoursStart,omitempty" validate:"omitempty,hhmm"`
	QuietHoursEnd     *string          `json:"quietHoursEnd,omitempty" validate:"omitempty,hhmm"`
}

// Apply returns a copy of p with the patch's non-nil fields merged in.
func (patch PreferencesPatch) Apply(p AlertPreferences) AlertPreferences {
	if patch.Enabled != nil {
		p.Enabled = *patch.Enabled
	}
	if patch.Threshold != nil {
		p.Threshold = *patch.Threshold
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.QuietHoursEnabled != nil {
		p.QuietHoursEnabled = *patch.QuietHoursEnabled
	}
	if patch.QuietHoursStart != nil {
		p.QuietHoursStart = *patch.QuietHoursStart
	}
	if patch.QuietHoursEnd != nil {
		p.QuietHoursEnd = *patch.QuietHoursEnd
	}
	return p
}

// DecodeAlertPreferences overlays the stored JSON object onto the defaults,
// so fields missing from older snapshots keep their default values.
func DecodeAlertPreferences(raw []byte) (AlertPreferences, error) {
	prefs := DefaultAlertPreferences()
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return DefaultAlertPreferences(), err
	}
	return prefs.Normalize(), nil
}
