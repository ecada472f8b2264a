package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		meters float64
		want   AccuracyClass
	}{
		{0, AccuracyHigh},
		{9.99, AccuracyHigh},
		{10, AccuracyGood},
		{49.9, AccuracyGood},
		{50, AccuracyApproximate},
		{1200, AccuracyApproximate},
	}

	for _, tt := range tests {
		got := Classify(tt.meters)
		assert.Equal(t, tt.want, got, "Classify(%v)", tt.meters)
	}
}

func TestUpdateAnnouncement(t *testing.T) {
	assert.Equal(t, "Location updated with high precision.", Classify(5).UpdateAnnouncement())
	assert.Equal(t, "Location updated with good precision.", Classify(25).UpdateAnnouncement())
	assert.Equal(t, "Location updated with approximate precision.", Classify(80).UpdateAnnouncement())
}

func TestFormatForSpeech(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"north west", 40, -73, "You are located at 40.0000 degrees North, 73.0000 degrees West"},
		{"south east", -33.86, 151.2, "You are located at 33.8600 degrees South, 151.2000 degrees East"},
		{"origin", 0, 0, "You are located at 0.0000 degrees North, 0.0000 degrees East"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatForSpeech(tt.lat, tt.lon))
		})
	}
}

func TestNewLocation(t *testing.T) {
	tests := []struct {
		name          string
		lat, lon, acc float64
		wantErr       bool
	}{
		{"valid", 40.7, -74.0, 12, false},
		{"poles and antimeridian", 90, -180, 0, false},
		{"latitude too high", 90.1, 0, 5, true},
		{"longitude too low", 0, -180.5, 5, true},
		{"negative accuracy", 0, 0, -1, true},
		{"nan latitude", math.NaN(), 0, 5, true},
		{"infinite accuracy", 0, 0, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := NewLocation(tt.lat, tt.lon, tt.acc, 1000)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lat, loc.Latitude)
			assert.Equal(t, int64(1000), loc.CapturedAtMillis)
		})
	}
}

func TestLocation_Coordinates(t *testing.T) {
	loc, err := NewLocation(40.7128, -74.006, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, "40.712800, -74.006000", loc.Coordinates())
	assert.Equal(t, AccuracyHigh, loc.Accuracy())
}

func TestLocation_JSON(t *testing.T) {
	loc := Location{Latitude: 1.5, Longitude: 2.5, AccuracyMeters: 30, CapturedAtMillis: 42}
	data, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"latitude":1.5,"longitude":2.5,"accuracy":30,"timestamp":42}`, string(data))

	class, err := json.Marshal(loc.Accuracy())
	require.NoError(t, err)
	assert.Equal(t, `"Good"`, string(class))
}
