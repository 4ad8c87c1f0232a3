// Package alerts decides whether a fresh weather report should raise a
// foreground rain alert. Evaluate is a pure function of its input: it reads
// preferences but never writes them, and it performs no I/O. On Emit the
// caller displays the payload and stamps the cooldown watermark.
package alerts

import (
	"fmt"
	"math"
	"time"

	"vaichover/internal/types"
)

// CooldownDuration is the minimum time between two emitted alerts.
const CooldownDuration = time.Hour

// DefaultTitle is the notification title for foreground alerts.
const DefaultTitle = "Vai chover nas próximas horas?"

// fallbackLabel names the location when the report has no label.
const fallbackLabel = "Sua localização"

// Reason explains why an alert was suppressed.
type Reason string

// Suppression reasons, in evaluation order.
const (
	ReasonAlertsDisabled Reason = "alertsDisabled"
	ReasonNotPermitted   Reason = "notPermitted"
	ReasonBelowThreshold Reason = "belowThreshold"
	ReasonQuietHours     Reason = "quietHours"
	ReasonCooldownActive Reason = "cooldownActive"
)

// Notification is the content of an emitted alert.
type Notification struct {
	Title string
	Body  string
	// Tag groups alerts for the same location so a platform can replace
	// rather than stack them.
	Tag string
}

// Decision is either Suppressed(Reason) or Emit(Notification).
type Decision struct {
	Emit         bool
	Reason       Reason
	Notification Notification
}

// Suppressed builds a suppression decision.
func Suppressed(r Reason) Decision { return Decision{Reason: r} }

// Emitted builds an emit decision.
func Emitted(n Notification) Decision { return Decision{Emit: true, Notification: n} }

func (d Decision) String() string {
	if d.Emit {
		return "Emit(" + d.Notification.Body + ")"
	}
	return "Suppressed(" + string(d.Reason) + ")"
}

// Input bundles everything Evaluate looks at. Permission is the platform's
// notification permission, sampled by the caller.
type Input struct {
	Report     types.WeatherReport
	Prefs      types.AlertPreferences
	Now        time.Time
	Permission types.NotificationPermission
}

// Evaluate applies the gates in order; the first that matches wins:
//  1. alerts disabled
//  2. platform permission not granted
//  3. rain probability below the user threshold
//  4. inside quiet hours (device-local time of Now)
//  5. within CooldownDuration of the last emitted alert
func Evaluate(in Input) Decision {
	p := in.Prefs

	if !p.Enabled {
		return Suppressed(ReasonAlertsDisabled)
	}
	if in.Permission != types.PermissionGranted {
		return Suppressed(ReasonNotPermitted)
	}
	if in.Report.RainProbability < float64(p.Threshold) {
		return Suppressed(ReasonBelowThreshold)
	}
	if p.QuietHoursEnabled && inQuietHours(in.Now, p.QuietHoursStart, p.QuietHoursEnd) {
		return Suppressed(ReasonQuietHours)
	}
	if cooldownActive(in.Now, p.LastNotifiedAt) {
		return Suppressed(ReasonCooldownActive)
	}

	return Emitted(BuildNotification(in.Report, p.Unit))
}

// BuildNotification renders the alert body:
//
//	"<label or fallback> · <temp><unit> · <rain>% de chance de chuva"
func BuildNotification(report types.WeatherReport, unit types.TemperatureUnit) Notification {
	label := report.Location.Label
	if label == "" {
		label = fallbackLabel
	}
	body := fmt.Sprintf("%s · %d%s · %d%% de chance de chuva",
		label,
		DisplayTemperature(report.Temperature, unit),
		unit.Symbol(),
		roundHalfUp(report.RainProbability),
	)
	return Notification{
		Title: DefaultTitle,
		Body:  body,
		Tag:   fmt.Sprintf("rain-%.2f,%.2f", report.Location.Latitude, report.Location.Longitude),
	}
}

// DisplayTemperature converts a Celsius reading to unit, rounded for display.
func DisplayTemperature(celsius float64, unit types.TemperatureUnit) int {
	if unit == types.UnitFahrenheit {
		return roundHalfUp(celsius*9/5 + 32)
	}
	return roundHalfUp(celsius)
}

// roundHalfUp rounds .5 toward positive infinity, so -0.5 becomes 0.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// inQuietHours reports whether now's wall-clock minute lies in the window.
// start <= end is the same-day window [start, end); start > end wraps
// midnight. Unparseable bounds never suppress.
func inQuietHours(now time.Time, start, end string) bool {
	s, err := types.ParseClockTime(start)
	if err != nil {
		return false
	}
	e, err := types.ParseClockTime(end)
	if err != nil {
		return false
	}
	m := types.ClockTime(now.Hour()*60 + now.Minute())

	if s <= e {
		return m >= s && m < e
	}
	return m >= s || m < e
}

// cooldownActive reports whether less than CooldownDuration has elapsed since
// last. An unset watermark never suppresses.
func cooldownActive(now time.Time, last *time.Time) bool {
	if last == nil {
		return false
	}
	return now.Sub(*last) < CooldownDuration
}
