package tts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/voicemap/internal/httpc"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	APIKey  string
	BaseURL string

	// DefaultVoice is used when a request has no VoiceID.
	DefaultVoice  string
	ModelID       string
	VoiceSettings VoiceSettings

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	Client *http.Client
	Logger *slog.Logger
}

// VoiceSettings controls ElevenLabs voice characteristics.
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
	SpeakerBoost    bool
}

// DefaultVoiceSettings favors a steady, clear delivery.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.7,
		SimilarityBoost: 0.75,
		SpeakerBoost:    true,
	}
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithVoice sets the default voice ID or preset name.
func WithVoice(voice string) Option {
	return func(c *Config) {
		c.DefaultVoice = voice
	}
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(c *Config) {
		c.ModelID = modelID
	}
}

// WithVoiceSettings sets voice characteristics.
func WithVoiceSettings(settings VoiceSettings) Option {
	return func(c *Config) {
		c.VoiceSettings = settings
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRetry configures retry behavior for failed requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.Client = client
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		VoiceSettings: DefaultVoiceSettings(),
		Timeout:       httpc.DefaultTimeout,
		MaxRetries:    2,
		RetryDelay:    200 * time.Millisecond,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Client == nil {
		c.Client = httpc.NewClient(c.Timeout)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
