// Package stt recognizes single spoken commands with a realtime streaming
// transcription service over a websocket.
//
// The wire protocol is the AssemblyAI v3 streaming API: binary PCM16
// frames go up, JSON Begin/Turn/Termination/Error messages come down,
// and the first end-of-turn transcript is the result.
package stt

import (
	"errors"
	"fmt"
	"time"
)

// DefaultURL is the AssemblyAI v3 streaming endpoint.
const DefaultURL = "wss://streaming.assemblyai.com/v3/ws"

// ErrNoAPIKey is returned when the API key is missing.
var ErrNoAPIKey = errors.New("stt: API key required")

// Config configures a Realtime recognizer.
type Config struct {
	URL    string
	APIKey string

	// SampleRate of the PCM16 audio sent upstream.
	SampleRate int

	// MaxListen bounds a single capture. Reaching it without a final
	// transcript is reported as no speech.
	MaxListen time.Duration

	// FormatTurns asks the service for punctuated, cased turns.
	FormatTurns bool

	HandshakeTimeout time.Duration
}

// DefaultConfig returns the configuration for the hosted service.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		SampleRate:       16000,
		MaxListen:        10 * time.Second,
		FormatTurns:      true,
		HandshakeTimeout: 10 * time.Second,
	}
}

// WithAPIKey returns a copy with the API key set.
func (c Config) WithAPIKey(key string) Config {
	c.APIKey = key
	return c
}

// WithURL returns a copy with the endpoint set.
func (c Config) WithURL(url string) Config {
	c.URL = url
	return c
}

// WithMaxListen returns a copy with the capture bound set.
func (c Config) WithMaxListen(d time.Duration) Config {
	c.MaxListen = d
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.URL == "" {
		return fmt.Errorf("stt: url required")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("stt: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.MaxListen <= 0 {
		return fmt.Errorf("stt: max listen must be positive, got %v", c.MaxListen)
	}
	return nil
}
