// Package tts synthesizes announcement audio with hosted text-to-speech
// providers.
//
// Every provider returns mono PCM16 so the result can be played on an
// audioio.Sink without decoding. Providers publish a voice catalog with
// language tags so callers can pick a voice per utterance.
//
//	provider, _ := tts.NewOpenAI(tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, tts.Request{Text: "Hello", Speed: 0.9})
//	// result.Audio holds PCM16 at result.Format.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Voices lists the voices the provider can speak with.
	Voices() []Voice

	// Synthesize converts the request text to a complete PCM16 buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Request is a single synthesis request.
type Request struct {
	Text string

	// VoiceID selects a voice from Voices. Empty uses the provider default.
	VoiceID string

	// Speed is the speaking rate where 1.0 is normal. Zero means 1.0.
	Speed float64
}

// Voice describes one provider voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Lang is a BCP 47 tag such as "en-US".
	Lang string `json:"lang"`
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio is little-endian mono PCM16.
	Audio []byte

	Format AudioFormat

	// Duration is the playback duration derived from the sample count.
	Duration time.Duration

	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the PCM parameters of a result.
type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// PCM24 is the format both hosted providers return.
var PCM24 = AudioFormat{SampleRate: 24000, Channels: 1, BitDepth: 16}

// PCMDuration returns the playback time of n bytes of mono PCM16.
func PCMDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := n / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

func effectiveSpeed(speed float64) float64 {
	if speed <= 0 {
		return 1.0
	}
	return speed
}
