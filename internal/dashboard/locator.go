package dashboard

import (
	"context"
	"errors"

	"vaichover/internal/types"
)

// Locator resolves the device's current position.
//
// Implementations report a refusal with ErrLocationDenied and a missing fix
// with ErrLocationUnavailable. Any other error, including the context
// deadline set by the controller, is treated as a timeout.
type Locator interface {
	Locate(ctx context.Context) (types.GeoPoint, error)
}

// Locator outcomes.
var (
	ErrLocationDenied      = types.NewAppError(types.ErrCodeGeoDenied, "location permission denied", nil)
	ErrLocationUnavailable = types.NewAppError(types.ErrCodeGeoUnavailable, "position unavailable", nil)
)

// Messages shown for location failures.
const (
	msgGeoDenied      = "Permissão de localização negada. Ative o GPS ou selecione uma cidade manualmente."
	msgGeoUnavailable = "Não foi possível determinar sua localização. Tente novamente em instantes."
	msgGeoTimeout     = "A consulta demorou mais do que o esperado. Tente novamente mais tarde."
	msgNoGeolocation  = "Seu dispositivo não oferece geolocalização. Digite ou escolha a cidade manualmente."
)

func mapLocateError(err error) *types.AppError {
	switch {
	case errors.Is(err, ErrLocationDenied):
		return types.NewAppError(types.ErrCodeGeoDenied, msgGeoDenied, err)
	case errors.Is(err, ErrLocationUnavailable):
		return types.NewAppError(types.ErrCodeGeoUnavailable, msgGeoUnavailable, err)
	default:
		return types.NewAppError(types.ErrCodeUnknown, msgGeoTimeout, err)
	}
}

// StaticLocator reports a fixed position, such as one given by flags or
// environment. A nil Point behaves like a device without a fix.
type StaticLocator struct {
	Point *types.GeoPoint
}

func (l StaticLocator) Locate(ctx context.Context) (types.GeoPoint, error) {
	if err := ctx.Err(); err != nil {
		return types.GeoPoint{}, err
	}
	if l.Point == nil {
		return types.GeoPoint{}, ErrLocationUnavailable
	}
	return *l.Point, nil
}

var _ Locator = StaticLocator{}
