package cityblocks

import (
	"github.com/charmbracelet/log"
)

// BuilderConfig holds settings that are not part of a city's saved state &
// may be shared by many cities. Everything is optional.
type BuilderConfig struct {
	// Outline restricts where new structures may be placed.
	// nil means the unbounded grid.
	Outline Outline

	// Logger receives generation diagnostics, log.Default() if not given.
	Logger *log.Logger
}

// CityConfig hold configuration for a given city.
type CityConfig struct {
	// Seed for the city's random sequence.
	// Cities with equal Seed & Population are identical.
	Seed int64

	// Population is the target number of people to house.
	// It is rounded to the nearest BlockSize (ties to even) before building.
	Population int64
}

// logger returns the configured logger or the default one
func (b *BuilderConfig) logger() *log.Logger {
	if b == nil || b.Logger == nil {
		return log.Default()
	}
	return b.Logger
}

// outline returns the configured Outline or nil
func (b *BuilderConfig) outline() Outline {
	if b == nil {
		return nil
	}
	return b.Outline
}
