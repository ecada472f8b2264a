// Package location turns a noisy device position stream into a stable,
// speech-ready location snapshot.
package location

import (
	"context"
	"errors"
	"time"
)

// Position error kinds reported by sources.
var (
	ErrPermissionDenied    = errors.New("location: permission denied")
	ErrPositionUnavailable = errors.New("location: position unavailable")
	ErrTimeout             = errors.New("location: timeout")
	ErrNotSupported        = errors.New("location: not supported")
)

// Options are the device request options.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultOptions returns the request options used for every fix:
// high accuracy, a 10 second timeout and fixes up to a minute old.
func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaximumAge:   60 * time.Second,
	}
}

// Sample is one raw fix from a source.
type Sample struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

// Update is one item of a watch stream: a sample or an error.
type Update struct {
	Sample Sample
	Err    error
}

// Source is a device position provider.
type Source interface {
	// Current requests a single fix.
	Current(ctx context.Context, opts Options) (Sample, error)

	// Watch subscribes to fixes. The channel closes when ctx is done.
	// Delivery never blocks the source: a reader that falls behind the
	// channel buffer misses updates rather than stalling other watchers.
	Watch(ctx context.Context, opts Options) (<-chan Update, error)
}

// ErrorMessage returns the sentence spoken for a position error.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location access denied. Please enable location services."
	case errors.Is(err, ErrPositionUnavailable):
		return "Location information unavailable."
	case errors.Is(err, ErrTimeout):
		return "Location request timed out."
	case errors.Is(err, ErrNotSupported):
		return "Geolocation is not supported on this device"
	default:
		return "Unable to get your location"
	}
}
