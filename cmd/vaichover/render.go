package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"vaichover/internal/alerts"
	"vaichover/internal/types"
)

func renderReport(w io.Writer, r types.WeatherReport, unit types.TemperatureUnit) {
	label := r.Location.Label
	if label == "" {
		label = fmt.Sprintf("%.4f, %.4f", r.Location.Latitude, r.Location.Longitude)
	}
	sym := unit.Symbol()

	verdict := "Sem chuva prevista hoje."
	if r.WillRain {
		verdict = "Vai chover! Leve o guarda-chuva."
	}

	fmt.Fprintf(w, "📍 %s\n", label)
	fmt.Fprintf(w, "%s\n", verdict)
	fmt.Fprintf(w, "Temperatura: %d%s\n", alerts.DisplayTemperature(r.Temperature, unit), sym)
	fmt.Fprintf(w, "Chance de chuva: %d%%\n", int(math.Round(r.RainProbability)))
	fmt.Fprintf(w, "Precipitação: %.1f mm\n", r.PrecipitationSum)
	if r.Humidity != nil {
		fmt.Fprintf(w, "Umidade: %d%%\n", int(math.Round(*r.Humidity)))
	}
	if r.WindSpeed != nil {
		fmt.Fprintf(w, "Vento: %.0f km/h", *r.WindSpeed)
		if r.WindGust != nil {
			fmt.Fprintf(w, " (rajadas de %.0f km/h)", *r.WindGust)
		}
		fmt.Fprintln(w)
	}

	if len(r.Forecast) > 0 {
		fmt.Fprintln(w, "\nPróximos dias:")
		for _, d := range r.Forecast {
			rain := ""
			if d.WillRain {
				rain = " ☔"
			}
			fmt.Fprintf(w, "  %s  %d%s / %d%s  %d%%%s\n",
				formatDay(d.Date),
				alerts.DisplayTemperature(d.MinTemp, unit), sym,
				alerts.DisplayTemperature(d.MaxTemp, unit), sym,
				int(math.Round(d.PrecipitationProbability)), rain)
		}
	}

	if !r.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "\nAtualizado em %s\n", r.UpdatedAt.In(reportLocation(r.Timezone)).Format("02/01 15:04"))
	}
}

// formatDay renders a YYYY-MM-DD date as "dd/mm"; other input is echoed.
func formatDay(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("02/01")
}

func reportLocation(tz string) *time.Location {
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

func renderHistory(w io.Writer, entries []types.SavedLocation) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Nenhuma cidade no histórico.")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(w, "%d. %s\n", i+1, e.Label)
	}
}

func renderPreferences(w io.Writer, p types.AlertPreferences) {
	fmt.Fprintf(w, "Alertas: %s\n", onOff(p.Enabled))
	fmt.Fprintf(w, "Limite: %d%%\n", p.Threshold)
	fmt.Fprintf(w, "Unidade: %s\n", p.Unit.Symbol())
	fmt.Fprintf(w, "Horário silencioso: %s (%s–%s)\n", onOff(p.QuietHoursEnabled), p.QuietHoursStart, p.QuietHoursEnd)
	if p.LastNotifiedAt != nil {
		fmt.Fprintf(w, "Último alerta: %s\n", p.LastNotifiedAt.Local().Format("02/01 15:04"))
	}
}

func renderPushState(w io.Writer, st types.PushSubscriptionState, available bool) {
	if !available {
		fmt.Fprintln(w, "Push: indisponível neste dispositivo")
		return
	}
	switch st.Status {
	case types.PushSubscribed:
		fmt.Fprintln(w, "Push: inscrito")
	case types.PushSubscribing:
		fmt.Fprintln(w, "Push: inscrevendo…")
	case types.PushError:
		fmt.Fprintln(w, "Push: erro na inscrição")
	default:
		fmt.Fprintln(w, "Push: não inscrito")
	}
}

// renderError prints the user-facing message of err.
func renderError(w io.Writer, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr != nil {
		fmt.Fprintf(w, "⚠️  %s\n", appErr.Message)
		return
	}
	fmt.Fprintf(w, "⚠️  %v\n", err)
}

func onOff(b bool) string {
	if b {
		return "ligado"
	}
	return "desligado"
}
