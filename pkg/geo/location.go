// Package geo holds the location model shared by the tracker, hazard
// reports and the speech layer.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidLocation is returned for coordinates or accuracy out of range.
var ErrInvalidLocation = errors.New("geo: invalid location")

// Location is one position fix. Values are immutable once constructed.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	AccuracyMeters   float64 `json:"accuracy"`
	CapturedAtMillis int64   `json:"timestamp"`
}

// NewLocation validates and builds a Location.
func NewLocation(lat, lon, accuracy float64, capturedAtMillis int64) (Location, error) {
	switch {
	case math.IsNaN(lat) || lat < -90 || lat > 90:
		return Location{}, fmt.Errorf("%w: latitude %v", ErrInvalidLocation, lat)
	case math.IsNaN(lon) || lon < -180 || lon > 180:
		return Location{}, fmt.Errorf("%w: longitude %v", ErrInvalidLocation, lon)
	case math.IsNaN(accuracy) || math.IsInf(accuracy, 0) || accuracy < 0:
		return Location{}, fmt.Errorf("%w: accuracy %v", ErrInvalidLocation, accuracy)
	}
	return Location{
		Latitude:         lat,
		Longitude:        lon,
		AccuracyMeters:   accuracy,
		CapturedAtMillis: capturedAtMillis,
	}, nil
}

// Accuracy returns the accuracy class of the fix.
func (l Location) Accuracy() AccuracyClass {
	return Classify(l.AccuracyMeters)
}

// Coordinates formats the fix as "lat, lon" with six decimals.
func (l Location) Coordinates() string {
	return fmt.Sprintf("%.6f, %.6f", l.Latitude, l.Longitude)
}

// FormatForSpeech renders coordinates as a sentence with hemisphere words.
func FormatForSpeech(lat, lon float64) string {
	latDir := "North"
	if lat < 0 {
		latDir = "South"
	}
	lonDir := "East"
	if lon < 0 {
		lonDir = "West"
	}
	return fmt.Sprintf("You are located at %.4f degrees %s, %.4f degrees %s",
		math.Abs(lat), latDir, math.Abs(lon), lonDir)
}
