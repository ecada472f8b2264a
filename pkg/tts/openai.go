package tts

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	openAITTSURL   = "https://api.openai.com/v1/audio/speech"
	providerOpenAI = "openai"
)

// OpenAI model options
const (
	ModelTTS1      = "tts-1"
	ModelTTS1HD    = "tts-1-hd"
	ModelGPT4oMini = "gpt-4o-mini-tts"
)

// OpenAI implements Provider for the OpenAI speech endpoint.
// Audio is requested as raw 24kHz PCM16.
type OpenAI struct {
	config  *Config
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.DefaultVoice = VoiceShimmer
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAITTSURL
	}

	return &OpenAI{
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.openai"),
		baseURL: baseURL,
	}, nil
}

// Name implements Provider.
func (o *OpenAI) Name() string { return providerOpenAI }

// Voices implements Provider.
func (o *OpenAI) Voices() []Voice {
	return append([]Voice(nil), OpenAIVoices...)
}

// Synthesize converts text to PCM16 audio.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}
	start := time.Now()

	voice := req.VoiceID
	if voice == "" {
		voice = o.config.DefaultVoice
	}

	payload := map[string]any{
		"model":           o.config.ModelID,
		"voice":           voice,
		"input":           req.Text,
		"response_format": "pcm",
		"speed":           effectiveSpeed(req.Speed),
	}
	headers := map[string]string{"Authorization": "Bearer " + o.config.APIKey}

	audio, err := postAudio(ctx, o.config, o.logger, providerOpenAI, o.baseURL, headers, payload, o.parseError)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", voice,
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
func (o *OpenAI) Close() error {
	o.config.Client.CloseIdleConnections()
	return nil
}

func (o *OpenAI) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := string(body)
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Code
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerOpenAI,
	}
}

var _ Provider = (*OpenAI)(nil)
