package voicemap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/voicemap/internal/config"
	"github.com/teslashibe/voicemap/pkg/audioio"
	"github.com/teslashibe/voicemap/pkg/location"
	"github.com/teslashibe/voicemap/pkg/speech"
	"github.com/teslashibe/voicemap/pkg/stt"
	"github.com/teslashibe/voicemap/pkg/tts"
)

// playbackRate is the sink rate; provider audio is resampled to it.
const playbackRate = 24000

// demoInterval is the pace of the scripted demo walk.
const demoInterval = 5 * time.Second

// NewSynthesizer builds the speech synthesis device for cfg. The "none"
// provider logs utterances instead of playing them.
func NewSynthesizer(cfg config.Config, logger *slog.Logger) (speech.Synthesizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTS.Provider == "none" {
		return speech.NewLogDevice(logger), nil
	}

	provider, err := NewTTSProvider(cfg.TTS, logger)
	if err != nil {
		return nil, err
	}

	acfg := audioio.DefaultConfig().
		WithBackend(audioio.Backend(cfg.Audio.Backend)).
		WithSampleRate(playbackRate).
		WithDevice(cfg.Audio.PlayDevice)
	sink, err := audioio.NewSink(acfg, logger)
	if err != nil {
		return nil, fmt.Errorf("voicemap: audio sink: %w", err)
	}
	return speech.NewProviderDevice(provider, sink, logger), nil
}

// NewTTSProvider builds the configured synthesis provider.
func NewTTSProvider(cfg config.TTSConfig, logger *slog.Logger) (tts.Provider, error) {
	common := []tts.Option{tts.WithTimeout(cfg.Timeout), tts.WithLogger(logger)}

	elevenlabs := func() (tts.Provider, error) {
		opts := append([]tts.Option{
			tts.WithAPIKey(cfg.ElevenLabsKey),
			tts.WithVoice(tts.ResolveElevenLabsVoice(cfg.Voice)),
		}, common...)
		return tts.NewElevenLabs(opts...)
	}
	openai := func() (tts.Provider, error) {
		opts := append([]tts.Option{tts.WithAPIKey(cfg.OpenAIKey)}, common...)
		if cfg.Voice != "" {
			opts = append(opts, tts.WithVoice(cfg.Voice))
		}
		return tts.NewOpenAI(opts...)
	}

	switch cfg.Provider {
	case "elevenlabs":
		return elevenlabs()
	case "openai":
		return openai()
	case "chain":
		var providers []tts.Provider
		if cfg.ElevenLabsKey != "" {
			p, err := elevenlabs()
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		}
		if cfg.OpenAIKey != "" {
			p, err := openai()
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		}
		return tts.NewChain(logger, providers...)
	default:
		return nil, fmt.Errorf("voicemap: unknown tts provider %q", cfg.Provider)
	}
}

// NewRecognizerFactory returns the recognizer factory for cfg, or nil
// when speech recognition is not configured.
func NewRecognizerFactory(cfg config.Config, logger *slog.Logger) (speech.RecognizerFactory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.SpeechRecognitionEnabled() {
		return nil, nil
	}

	acfg := audioio.DefaultConfig().
		WithBackend(audioio.Backend(cfg.Audio.Backend)).
		WithSampleRate(cfg.STT.SampleRate).
		WithDevice(cfg.Audio.CaptureDevice)
	source, err := audioio.NewSource(acfg, logger)
	if err != nil {
		return nil, fmt.Errorf("voicemap: audio source: %w", err)
	}

	scfg := stt.DefaultConfig().
		WithAPIKey(cfg.STT.APIKey).
		WithURL(cfg.STT.URL).
		WithMaxListen(cfg.STT.MaxListen)
	scfg.SampleRate = cfg.STT.SampleRate
	return stt.Factory(scfg, source, logger), nil
}

// PositionSource is a location.Source with a lifecycle.
type PositionSource struct {
	location.Source
	stop func() error
}

// Close releases the source.
func (p *PositionSource) Close() error {
	if p.stop == nil {
		return nil
	}
	return p.stop()
}

// NewPositionSource builds the position source: the scripted demo walk
// replayed until Close, or fixes from the MQTT broker.
func NewPositionSource(cfg config.Config, logger *slog.Logger) (*PositionSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UseDemoSource() {
		src := location.NewScriptedSource()
		ctx, cancel := context.WithCancel(context.Background())
		go src.Replay(ctx, location.DemoWalk(), demoInterval)
		logger.Info("using demo position source", "interval", demoInterval)
		return &PositionSource{Source: src, stop: func() error { cancel(); return nil }}, nil
	}

	client, err := location.NewMQTTClient(location.MQTTConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topic:    cfg.MQTT.Topic,
	})
	if err != nil {
		return nil, err
	}
	src := location.NewMQTTSource(client, cfg.MQTT.Topic, 1, logger)
	if err := src.Start(); err != nil {
		client.Disconnect(250)
		return nil, err
	}
	logger.Info("using mqtt position source", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	return &PositionSource{Source: src, stop: src.Close}, nil
}

// closeAll closes every closer and joins the errors.
func closeAll(closers ...func() error) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
