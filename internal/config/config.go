// Package config loads voicemap configuration from the environment.
// A .env file in the working directory is applied first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voicemap binary.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddress string `envconfig:"HTTP_ADDRESS" default:":8080"`
	Locale      string `envconfig:"VOICEMAP_LOCALE" default:"en-US"`
	HazardsFile string `envconfig:"VOICEMAP_HAZARDS_FILE" default:"voicemap-hazards.json"`
	// Demo replays a scripted walk instead of reading positions from MQTT.
	Demo bool `envconfig:"VOICEMAP_DEMO" default:"false"`

	TTS   TTSConfig
	STT   STTConfig
	Audio AudioConfig
	MQTT  MQTTConfig
}

// TTSConfig selects the speech synthesis provider.
type TTSConfig struct {
	// Provider is one of "none", "elevenlabs", "openai" or "chain"
	// (ElevenLabs first, OpenAI as fallback).
	Provider      string        `envconfig:"TTS_PROVIDER" default:"none"`
	Voice         string        `envconfig:"TTS_VOICE"`
	ElevenLabsKey string        `envconfig:"ELEVENLABS_API_KEY"`
	OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
	Timeout       time.Duration `envconfig:"TTS_TIMEOUT" default:"30s"`
}

// STTConfig configures the realtime recognizer.
// An empty APIKey means speech recognition is not available.
type STTConfig struct {
	URL        string        `envconfig:"STT_URL" default:"wss://streaming.assemblyai.com/v3/ws"`
	APIKey     string        `envconfig:"STT_API_KEY"`
	MaxListen  time.Duration `envconfig:"STT_MAX_LISTEN" default:"10s"`
	SampleRate int           `envconfig:"STT_SAMPLE_RATE" default:"16000"`
}

// AudioConfig selects the audio device backend.
type AudioConfig struct {
	Backend       string `envconfig:"AUDIO_BACKEND" default:"mock"`
	CaptureDevice string `envconfig:"AUDIO_CAPTURE_DEVICE"`
	PlayDevice    string `envconfig:"AUDIO_PLAY_DEVICE"`
}

// MQTTConfig configures the MQTT position source.
// An empty Broker selects the built-in demo walk instead.
type MQTTConfig struct {
	Broker   string `envconfig:"MQTT_BROKER"`
	Topic    string `envconfig:"MQTT_TOPIC" default:"voicemap/device/position"`
	ClientID string `envconfig:"MQTT_CLIENT_ID" default:"voicemap"`
	Username string `envconfig:"MQTT_USERNAME"`
	Password string `envconfig:"MQTT_PASSWORD"`
}

// Load applies .env files and reads the environment.
// With no files given, ./.env is used if it exists.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load env file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.TTS.Provider {
	case "none":
	case "elevenlabs":
		if c.TTS.ElevenLabsKey == "" {
			return &Error{Field: "ELEVENLABS_API_KEY", Message: "required for the elevenlabs provider"}
		}
	case "openai":
		if c.TTS.OpenAIKey == "" {
			return &Error{Field: "OPENAI_API_KEY", Message: "required for the openai provider"}
		}
	case "chain":
		if c.TTS.ElevenLabsKey == "" && c.TTS.OpenAIKey == "" {
			return &Error{Field: "TTS_PROVIDER", Message: "chain needs at least one provider key"}
		}
	default:
		return &Error{Field: "TTS_PROVIDER", Message: "unknown provider " + c.TTS.Provider}
	}

	switch c.Audio.Backend {
	case "mock", "alsa":
	default:
		return &Error{Field: "AUDIO_BACKEND", Message: "unknown backend " + c.Audio.Backend}
	}

	if !strings.Contains(c.Locale, "-") {
		return &Error{Field: "VOICEMAP_LOCALE", Message: "expected a language tag like en-US"}
	}
	if c.STT.SampleRate <= 0 {
		return &Error{Field: "STT_SAMPLE_RATE", Message: "must be positive"}
	}
	return nil
}

// UseDemoSource reports whether positions come from the scripted walk.
func (c *Config) UseDemoSource() bool {
	return c.Demo || c.MQTT.Broker == ""
}

// SpeechRecognitionEnabled reports whether a recognizer can be built.
func (c *Config) SpeechRecognitionEnabled() bool {
	return c.STT.APIKey != ""
}

// Error describes an invalid configuration value.
type Error struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}
