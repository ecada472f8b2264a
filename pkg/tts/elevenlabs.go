package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	ModelTurboV2_5      = "eleven_turbo_v2_5"
	ModelFlashV2_5      = "eleven_flash_v2_5"
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// ElevenLabs implements Provider for ElevenLabs TTS.
// Audio is requested with output_format=pcm_24000.
type ElevenLabs struct {
	config  *Config
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTurboV2_5
	cfg.DefaultVoice = DefaultElevenLabsVoice
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Name implements Provider.
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// Voices implements Provider.
func (e *ElevenLabs) Voices() []Voice {
	return append([]Voice(nil), ElevenLabsVoices...)
}

// Synthesize converts text to PCM16 audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerElevenLabs, ErrEmptyText)
	}
	start := time.Now()

	voice := req.VoiceID
	if voice == "" {
		voice = e.config.DefaultVoice
	}
	voice = ResolveElevenLabsVoice(voice)

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_24000", e.baseURL, voice)
	headers := map[string]string{
		"xi-api-key": e.config.APIKey,
		"Accept":     "audio/pcm",
	}

	audio, err := postAudio(ctx, e.config, e.logger, providerElevenLabs, url, headers, e.buildPayload(req), e.parseError)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"model", e.config.ModelID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    PCM24,
		Duration:  PCMDuration(len(audio), PCM24.SampleRate),
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.config.Client.CloseIdleConnections()
	return nil
}

func (e *ElevenLabs) buildPayload(req Request) map[string]any {
	return map[string]any{
		"text":     req.Text,
		"model_id": e.config.ModelID,
		"voice_settings": map[string]any{
			"stability":         e.config.VoiceSettings.Stability,
			"similarity_boost":  e.config.VoiceSettings.SimilarityBoost,
			"use_speaker_boost": e.config.VoiceSettings.SpeakerBoost,
			"speed":             effectiveSpeed(req.Speed),
		},
	}
}

func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	message := string(body)
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
		code = errResp.Detail.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerElevenLabs,
	}
}

var _ Provider = (*ElevenLabs)(nil)
