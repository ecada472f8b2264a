package audioio

import (
	"fmt"
	"log/slog"
)

// NewSource creates an audio source for cfg.Backend.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("creating audio source",
		"backend", cfg.Backend,
		"sample_rate", cfg.SampleRate,
		"device", cfg.Device,
	)

	switch cfg.Backend {
	case BackendMock:
		return NewMockSource(cfg), nil
	case BackendALSA:
		return NewALSASource(cfg, logger), nil
	default:
		return nil, fmt.Errorf("audioio: unsupported backend: %s", cfg.Backend)
	}
}

// NewSink creates an audio sink for cfg.Backend.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("creating audio sink",
		"backend", cfg.Backend,
		"sample_rate", cfg.SampleRate,
		"device", cfg.Device,
	)

	switch cfg.Backend {
	case BackendMock:
		return NewMockSink(cfg), nil
	case BackendALSA:
		return NewALSASink(cfg, logger), nil
	default:
		return nil, fmt.Errorf("audioio: unsupported backend: %s", cfg.Backend)
	}
}
