// Package audioio provides audio capture and playback for speech.
//
// Two backends exist:
//   - ALSA: arecord/aplay child processes streaming raw PCM16
//   - Mock: in-memory devices for tests and headless runs
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendALSA streams through the alsa-utils arecord and aplay tools.
	BackendALSA Backend = "alsa"
	// BackendMock uses an in-memory implementation.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	Backend Backend `json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000 (what the recognizer expects)
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels.
	Channels int `json:"channels"`

	// BufferDuration is the size of each captured chunk.
	BufferDuration time.Duration `json:"buffer_duration"`

	// Device is the ALSA device name, e.g. "default" or "plughw:1,0".
	Device string `json:"device"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendMock,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 50 * time.Millisecond,
	}
}

// WithBackend returns a copy with the backend set.
func (c Config) WithBackend(b Backend) Config {
	c.Backend = b
	return c
}

// WithSampleRate returns a copy with the sample rate set.
func (c Config) WithSampleRate(rate int) Config {
	c.SampleRate = rate
	return c
}

// WithDevice returns a copy with the device set.
func (c Config) WithDevice(device string) Config {
	c.Device = device
	return c
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audioio: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("audioio: channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("audioio: buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of frames per chunk.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a chunk in bytes.
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
