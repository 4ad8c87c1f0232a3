package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation constraint constants.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// ValidCoordinates reports whether lat/lon are inside WGS84 bounds.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= MinLat && lat <= MaxLat && lon >= MinLon && lon <= MaxLon
}

// ClockTime is a wall-clock time of day expressed as minutes since midnight.
type ClockTime int

// ParseClockTime parses an "HH:MM" string. A missing minute component
// ("7" or "07:") counts as zero minutes.
func ParseClockTime(s string) (ClockTime, error) {
	hourPart, minutePart, _ := strings.Cut(strings.TrimSpace(s), ":")
	h, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM format, got %q", s)
	}
	m := 0
	if minutePart != "" {
		m, err = strconv.Atoi(minutePart)
		if err != nil {
			return 0, fmt.Errorf("expected HH:MM format, got %q", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return ClockTime(h*60 + m), nil
}

// String formats the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// NewStructValidator returns a go-playground validator with the module's
// custom tags registered:
//
//	hhmm - string parses with ParseClockTime
func NewStructValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := ParseClockTime(fl.Field().String())
		return err == nil
	})
	return v
}
