package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAlertPreferences_MergesOverDefaults(t *testing.T) {
	prefs, err := DecodeAlertPreferences([]byte(`{"enabled":true,"threshold":75}`))
	require.NoError(t, err)

	assert.True(t, prefs.Enabled)
	assert.Equal(t, 75, prefs.Threshold)
	assert.Equal(t, UnitCelsius, prefs.Unit)
	assert.Equal(t, "22:00", prefs.QuietHoursStart)
	assert.Equal(t, "06:00", prefs.QuietHoursEnd)
	assert.Nil(t, prefs.LastNotifiedAt)
}

func TestDecodeAlertPreferences_ParsesWatermark(t *testing.T) {
	prefs, err := DecodeAlertPreferences([]byte(`{"lastNotifiedAt":"2026-10-14T08:30:00.000Z"}`))
	require.NoError(t, err)
	require.NotNil(t, prefs.LastNotifiedAt)
	assert.True(t, prefs.LastNotifiedAt.Equal(time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)))
}

func TestDecodeAlertPreferences_ClampsThreshold(t *testing.T) {
	prefs, err := DecodeAlertPreferences([]byte(`{"threshold":5,"unit":"kelvin"}`))
	require.NoError(t, err)
	assert.Equal(t, MinAlertThreshold, prefs.Threshold)
	assert.Equal(t, UnitCelsius, prefs.Unit)

	prefs, err = DecodeAlertPreferences([]byte(`{"threshold":140}`))
	require.NoError(t, err)
	assert.Equal(t, MaxAlertThreshold, prefs.Threshold)
}

func TestDecodeAlertPreferences_Garbage(t *testing.T) {
	prefs, err := DecodeAlertPreferences([]byte(`not json`))
	assert.Error(t, err)
	assert.Equal(t, DefaultAlertPreferences(), prefs)
}

func TestPreferencesPatch_Apply(t *testing.T) {
	enabled := true
	unit := UnitFahrenheit
	start := "23:00"
	base := DefaultAlertPreferences()

	got := PreferencesPatch{Enabled: &enabled, Unit: &unit, QuietHoursStart: &start}.Apply(base)

	assert.True(t, got.Enabled)
	assert.Equal(t, UnitFahrenheit, got.Unit)
	assert.Equal(t, "23:00", got.QuietHoursStart)
	assert.Equal(t, base.Threshold, got.Threshold)
	assert.False(t, base.Enabled, "Apply must not mutate its input")
}

func TestTemperatureUnitSymbol(t *testing.T) {
	assert.Equal(t, "°C", UnitCelsius.Symbol())
	assert.Equal(t, "°F", UnitFahrenheit.Symbol())
}

func TestNormalize_RepairsQuietHours(t *testing.T) {
	p := DefaultAlertPreferences()
	p.QuietHoursStart = "25:00"
	p.QuietHoursEnd = "soon"

	got := p.Normalize()
	assert.Equal(t, "22:00", got.QuietHoursStart)
	assert.Equal(t, "06:00", got.QuietHoursEnd)
}
