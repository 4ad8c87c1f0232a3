package alerts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vaichover/internal/types"
)

var noon = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return time.Date(2026, 10, 14, hh, mm, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func rainyReport() types.WeatherReport {
	return types.WeatherReport{
		Temperature:     22,
		RainProbability: 72,
		Location:        types.GeoPoint{Latitude: -23.55, Longitude: -46.63, Label: "São Paulo, SP, Brasil"},
	}
}

func enabledPrefs() types.AlertPreferences {
	p := types.DefaultAlertPreferences()
	p.Enabled = true
	return p
}

func granted(report types.WeatherReport, prefs types.AlertPreferences, now time.Time) Input {
	return Input{Report: report, Prefs: prefs, Now: now, Permission: types.PermissionGranted}
}

func TestEvaluate_EmitScenario(t *testing.T) {
	d := Evaluate(granted(rainyReport(), enabledPrefs(), noon))

	assert.True(t, d.Emit, d.String())
	assert.Contains(t, d.Notification.Body, "72%")
	assert.Equal(t, "São Paulo, SP, Brasil · 22°C · 72% de chance de chuva", d.Notification.Body)
	assert.Equal(t, DefaultTitle, d.Notification.Title)
}

func TestEvaluate_BelowThresholdScenario(t *testing.T) {
	prefs := enabledPrefs()
	prefs.Threshold = 80

	assert.Equal(t, Suppressed(ReasonBelowThreshold), Evaluate(granted(rainyReport(), prefs, noon)))
}

func TestEvaluate_DisabledAlwaysSuppressed(t *testing.T) {
	prefs := enabledPrefs()
	prefs.Enabled = false

	for _, rain := range []float64{0, 40, 60, 100} {
		r := rainyReport()
		r.RainProbability = rain
		for _, perm := range []types.NotificationPermission{types.PermissionDefault, types.PermissionGranted, types.PermissionDenied} {
			d := Evaluate(Input{Report: r, Prefs: prefs, Now: noon, Permission: perm})
			assert.Equal(t, Suppressed(ReasonAlertsDisabled), d)
		}
	}
}

func TestEvaluate_GateOrder(t *testing.T) {
	quiet := enabledPrefs()
	quiet.QuietHoursEnabled = true
	quiet.QuietHoursStart = "00:00"
	quiet.QuietHoursEnd = "23:59"
	quiet.LastNotifiedAt = ptr(noon.Add(-time.Minute))

	tests := []struct {
		name  string
		input Input
		want  Reason
	}{
		{
			name:  "permission checked before threshold",
			input: Input{Report: types.WeatherReport{RainProbability: 0}, Prefs: quiet, Now: noon, Permission: types.PermissionDenied},
			want:  ReasonNotPermitted,
		},
		{
			name:  "default permission is not granted",
			input: Input{Report: rainyReport(), Prefs: enabledPrefs(), Now: noon, Permission: types.PermissionDefault},
			want:  ReasonNotPermitted,
		},
		{
			name:  "threshold before quiet hours",
			input: granted(types.WeatherReport{RainProbability: 10}, quiet, noon),
			want:  ReasonBelowThreshold,
		},
		{
			name:  "quiet hours before cooldown",
			input: granted(rainyReport(), quiet, noon),
			want:  ReasonQuietHours,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Suppressed(tt.want), Evaluate(tt.input))
		})
	}
}

func TestEvaluate_ThresholdIsInclusive(t *testing.T) {
	r := rainyReport()
	r.RainProbability = 60

	assert.True(t, Evaluate(granted(r, enabledPrefs(), noon)).Emit)

	r.RainProbability = 59.9
	assert.Equal(t, Suppressed(ReasonBelowThreshold), Evaluate(granted(r, enabledPrefs(), noon)))
}

func TestEvaluate_Cooldown(t *testing.T) {
	tests := []struct {
		name string
		last *time.Time
		emit bool
	}{
		{"30 minutes ago", ptr(noon.Add(-30 * time.Minute)), false},
		{"59 minutes ago", ptr(noon.Add(-59 * time.Minute)), false},
		{"exactly one hour ago", ptr(noon.Add(-time.Hour)), true},
		{"90 minutes ago", ptr(noon.Add(-90 * time.Minute)), true},
		{"never notified", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := enabledPrefs()
			prefs.LastNotifiedAt = tt.last

			d := Evaluate(granted(rainyReport(), prefs, noon))
			if tt.emit {
				assert.True(t, d.Emit, d.String())
			} else {
				assert.Equal(t, Suppressed(ReasonCooldownActive), d)
			}
		})
	}
}

func TestInQuietHours(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		now        time.Time
		want       bool
	}{
		{"wrap: late evening inside", "22:00", "06:00", at(23, 30), true},
		{"wrap: just before end inside", "22:00", "06:00", at(5, 59), true},
		{"wrap: midday outside", "22:00", "06:00", at(12, 0), false},
		{"wrap: start minute inside", "22:00", "06:00", at(22, 0), true},
		{"wrap: end minute outside", "22:00", "06:00", at(6, 0), false},
		{"same-day: inside", "13:00", "15:00", at(14, 0), true},
		{"same-day: end exclusive", "13:00", "15:00", at(15, 0), false},
		{"same-day: before start", "13:00", "15:00", at(12, 59), false},
		{"empty window", "08:00", "08:00", at(8, 0), false},
		{"bad start fails open", "xx", "06:00", at(3, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inQuietHours(tt.now, tt.start, tt.end))
		})
	}
}

func TestEvaluate_QuietHoursUsesLocalWallClock(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 01:30 UTC is 22:30 local, inside 22:00-06:00.
	now := time.Date(2026, 10, 14, 1, 30, 0, 0, time.UTC).In(loc)

	prefs := enabledPrefs()
	prefs.QuietHoursEnabled = true

	assert.Equal(t, Suppressed(ReasonQuietHours), Evaluate(granted(rainyReport(), prefs, now)))
}

func TestDisplayTemperature(t *testing.T) {
	assert.Equal(t, 32, DisplayTemperature(0, types.UnitFahrenheit))
	assert.Equal(t, 212, DisplayTemperature(100, types.UnitFahrenheit))
	assert.Equal(t, 72, DisplayTemperature(22.2, types.UnitFahrenheit))
	assert.Equal(t, 23, DisplayTemperature(22.5, types.UnitCelsius))
	assert.Equal(t, 0, DisplayTemperature(-0.5, types.UnitCelsius))
}

func TestBuildNotification(t *testing.T) {
	r := rainyReport()
	r.Location.Label = ""
	r.RainProbability = 66.6

	n := BuildNotification(r, types.UnitFahrenheit)
	assert.Equal(t, "Sua localização · 72°F · 67% de chance de chuva", n.Body)
	assert.True(t, strings.HasPrefix(n.Tag, "rain-"))
}
