package speech

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/voicemap/pkg/audioio"
	"github.com/teslashibe/voicemap/pkg/tts"
)

// ProviderDevice is a Synthesizer that renders speech with a tts.Provider
// and plays it on an audio sink. Rate maps to the provider speed; pitch
// is not supported by the hosted providers and is ignored.
type ProviderDevice struct {
	provider tts.Provider
	sink     audioio.Sink
	logger   *slog.Logger
}

// NewProviderDevice creates a device speaking through provider on sink.
func NewProviderDevice(provider tts.Provider, sink audioio.Sink, logger *slog.Logger) *ProviderDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderDevice{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "speech.device", "provider", provider.Name()),
	}
}

// Voices lists the provider's voices.
func (d *ProviderDevice) Voices() []Voice {
	pv := d.provider.Voices()
	voices := make([]Voice, 0, len(pv))
	for _, v := range pv {
		voices = append(voices, Voice{ID: v.ID, Name: v.Name, Lang: v.Lang})
	}
	return voices
}

// Speak synthesizes u and blocks until the sink has played it.
func (d *ProviderDevice) Speak(ctx context.Context, u Utterance) error {
	result, err := d.provider.Synthesize(ctx, tts.Request{
		Text:    u.Text,
		VoiceID: u.Voice.ID,
		Speed:   u.Rate,
	})
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}

	samples := audioio.BytesToSamples(result.Audio)
	if u.Volume > 0 && u.Volume < 1 {
		scaleVolume(samples, u.Volume)
	}
	rate := d.sink.Config().SampleRate
	if result.Format.SampleRate > 0 {
		samples = audioio.Resample(samples, result.Format.SampleRate, rate)
	}
	chunk := audioio.AudioChunk{Samples: samples, SampleRate: rate, Channels: 1}

	if err := d.sink.Start(ctx); err != nil {
		return fmt.Errorf("speech: start sink: %w", err)
	}
	if err := d.sink.Write(ctx, chunk); err != nil {
		return d.interrupted(ctx, fmt.Errorf("speech: write sink: %w", err))
	}
	if err := d.sink.Flush(ctx); err != nil {
		return d.interrupted(ctx, err)
	}
	return nil
}

func (d *ProviderDevice) interrupted(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if cerr := d.sink.Clear(); cerr != nil {
		d.logger.Debug("clear sink failed", "error", cerr)
	}
	return ctx.Err()
}

func scaleVolume(samples []int16, volume float64) {
	for i, s := range samples {
		samples[i] = int16(float64(s) * volume)
	}
}

// LogDevice is a Synthesizer for headless runs. It logs each utterance
// and returns immediately.
type LogDevice struct {
	logger *slog.Logger
}

// NewLogDevice creates a LogDevice.
func NewLogDevice(logger *slog.Logger) *LogDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDevice{logger: logger.With("component", "speech.log_device")}
}

// Voices returns no voices.
func (d *LogDevice) Voices() []Voice { return nil }

// Speak logs the text.
func (d *LogDevice) Speak(ctx context.Context, u Utterance) error {
	d.logger.Info("speak", "text", u.Text)
	return ctx.Err()
}

var (
	_ Synthesizer = (*ProviderDevice)(nil)
	_ Synthesizer = (*LogDevice)(nil)
)
