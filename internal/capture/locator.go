package capture

import (
	"context"
	"errors"

	"github.com/lewtec/geogallery/internal/apperr"
)

// Coordinates is a GPS fix in decimal degrees
type Coordinates struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Locator returns the current position of the device
type Locator interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// FixedLocator always reports the same position
type FixedLocator Coordinates

func (l FixedLocator) CurrentPosition(ctx context.Context) (Coordinates, error) {
	return Coordinates(l), nil
}

// NoLocator never has a fix
type NoLocator struct{}

func (NoLocator) CurrentPosition(ctx context.Context) (Coordinates, error) {
	return Coordinates{}, apperr.ErrNoLocation
}

// Chain tries each locator in order and returns the first fix
type Chain []Locator

func (c Chain) CurrentPosition(ctx context.Context) (Coordinates, error) {
	var errs []error
	for _, l := range c {
		if l == nil {
			continue
		}
		pos, err := l.CurrentPosition(ctx)
		if err == nil {
			return pos, nil
		}
		if ctx.Err() != nil {
			return Coordinates{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Coordinates{}, apperr.ErrNoLocation
	}
	return Coordinates{}, errors.Join(errs...)
}

// LocatorFunc adapts a function to Locator
type LocatorFunc func(ctx context.Context) (Coordinates, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (Coordinates, error) {
	return f(ctx)
}

// ConfigLocator returns the locator for a configured default position.
// A nil position means no fix.
func ConfigLocator(pos *Coordinates) Locator {
	if pos == nil {
		return NoLocator{}
	}
	return FixedLocator(*pos)
}
