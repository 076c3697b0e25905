// Package geocode maps GPS coordinates to short place labels used as
// destination folder segments.
//
// Two sentinel labels are deliberately distinct: NoLocationLabel means a file
// never carried coordinates, UnknownLabel means coordinates were present but
// could not be resolved. Grouping relies on the difference.
package geocode

import (
	"context"

	"shoebox/internal/media"
)

const (
	// NoLocationLabel is used when a file has no GPS data at all.
	NoLocationLabel = "NoLocation"
	// UnknownLabel is used when coordinates exist but lookup failed.
	UnknownLabel = "UnknownLocation"
)

// Resolver turns optional coordinates into a place label. Implementations
// must return NoLocationLabel for nil coordinates and UnknownLabel when a
// lookup cannot be completed; they never return an empty string.
type Resolver interface {
	Resolve(ctx context.Context, coords *media.Coordinates) string
}

// Disabled is the resolver used when reverse geocoding is turned off. Files
// with coordinates land in the UnknownLabel bucket rather than being guessed.
type Disabled struct{}

func (Disabled) Resolve(_ context.Context, coords *media.Coordinates) string {
	if coords == nil {
		return NoLocationLabel
	}
	return UnknownLabel
}
