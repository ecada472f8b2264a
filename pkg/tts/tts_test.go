package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/voicemap/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, tts.Request{Text: "Hello world"})
		require.NoError(t, err)
		assert.Len(t, result.Audio, 11*960)
		assert.Equal(t, 11, result.CharCount)
		assert.Equal(t, 24000, result.Format.SampleRate)
		assert.Equal(t, 220*time.Millisecond, result.Duration)
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		assert.Equal(t, 1, mock.CallCount("Synthesize"))
		require.NotNil(t, mock.LastCall())
		assert.Equal(t, "Hello world", mock.LastCall().Request.Text)
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		assert.Empty(t, mock.Calls())
		assert.Nil(t, mock.LastCall())
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)

	_, err := mock.Synthesize(context.Background(), tts.Request{Text: "Hello"})
	assert.ErrorIs(t, err, testErr)
}

func TestMockWithLatency(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), 50*time.Millisecond)

	t.Run("Synthesize has latency", func(t *testing.T) {
		start := time.Now()
		_, err := mock.Synthesize(context.Background(), tts.Request{Text: "Hello"})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("Context cancellation works", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := mock.Synthesize(ctx, tts.Request{Text: "Hello"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("first provider wins", func(t *testing.T) {
		first, second := tts.NewMock(), tts.NewMock()
		chain, err := tts.NewChain(nil, first, second)
		require.NoError(t, err)

		_, err = chain.Synthesize(ctx, tts.Request{Text: "hi"})
		require.NoError(t, err)
		assert.Equal(t, 1, first.CallCount("Synthesize"))
		assert.Equal(t, 0, second.CallCount("Synthesize"))
	})

	t.Run("falls back on failure", func(t *testing.T) {
		failing := tts.WithError(errors.New("down"))
		backup := tts.NewMock()
		chain, err := tts.NewChain(nil, failing, backup)
		require.NoError(t, err)

		result, err := chain.Synthesize(ctx, tts.Request{Text: "hi"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Audio)
		assert.Equal(t, 1, backup.CallCount("Synthesize"))
	})

	t.Run("unknown voice is dropped for fallback", func(t *testing.T) {
		failing := tts.WithError(errors.New("down"))
		failing.VoiceList = []tts.Voice{{ID: "only-here", Name: "Only Female", Lang: "en-US"}}
		backup := tts.NewMock()
		chain, err := tts.NewChain(nil, failing, backup)
		require.NoError(t, err)

		_, err = chain.Synthesize(ctx, tts.Request{Text: "hi", VoiceID: "only-here"})
		require.NoError(t, err)
		assert.Equal(t, "only-here", failing.LastCall().Request.VoiceID)
		assert.Equal(t, "", backup.LastCall().Request.VoiceID)
	})

	t.Run("all fail", func(t *testing.T) {
		last := errors.New("second down")
		chain, err := tts.NewChain(nil, tts.WithError(errors.New("first down")), tts.WithError(last))
		require.NoError(t, err)

		_, err = chain.Synthesize(ctx, tts.Request{Text: "hi"})
		var chainErr *tts.ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Len(t, chainErr.Errors, 2)
		assert.ErrorIs(t, err, last)
	})

	t.Run("voices are merged", func(t *testing.T) {
		a := tts.NewMock()
		b := tts.NewMock()
		b.VoiceList = append(b.VoiceList, tts.Voice{ID: "extra", Name: "Extra", Lang: "fr-FR"})
		chain, err := tts.NewChain(nil, a, b)
		require.NoError(t, err)
		assert.Len(t, chain.Voices(), 3)
	})

	t.Run("requires a provider", func(t *testing.T) {
		_, err := tts.NewChain(nil)
		assert.ErrorIs(t, err, tts.ErrProviderUnavailable)
	})
}

func TestOpenAI_Synthesize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write(make([]byte, 4800))
	}))
	defer srv.Close()

	p, err := tts.NewOpenAI(tts.WithAPIKey("sk-test"), tts.WithBaseURL(srv.URL))
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Synthesize(context.Background(), tts.Request{Text: "Turn left", VoiceID: tts.VoiceNova, Speed: 0.9})
	require.NoError(t, err)

	assert.Equal(t, "nova", got["voice"])
	assert.Equal(t, "pcm", got["response_format"])
	assert.Equal(t, "Turn left", got["input"])
	assert.InDelta(t, 0.9, got["speed"], 1e-9)
	assert.Equal(t, 100*time.Millisecond, result.Duration)
	assert.Equal(t, tts.PCM24, result.Format)
}

func TestOpenAI_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := tts.NewOpenAI()
		assert.ErrorIs(t, err, tts.ErrNoAPIKey)
	})

	t.Run("empty text", func(t *testing.T) {
		p, err := tts.NewOpenAI(tts.WithAPIKey("k"))
		require.NoError(t, err)
		_, err = p.Synthesize(context.Background(), tts.Request{Text: "  "})
		assert.ErrorIs(t, err, tts.ErrEmptyText)
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
		}))
		defer srv.Close()

		p, err := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithRetry(3, time.Millisecond))
		require.NoError(t, err)

		_, err = p.Synthesize(context.Background(), tts.Request{Text: "hi"})
		var apiErr *tts.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsUnauthorized())
		assert.Equal(t, "invalid_api_key", apiErr.Code)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("server error is retried", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte{0, 0})
		}))
		defer srv.Close()

		p, err := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithRetry(2, time.Millisecond))
		require.NoError(t, err)

		_, err = p.Synthesize(context.Background(), tts.Request{Text: "hi"})
		require.NoError(t, err)
		assert.Equal(t, int32(2), hits.Load())
	})
}

func TestElevenLabs_Synthesize(t *testing.T) {
	var path, format string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		format = r.URL.Query().Get("output_format")
		assert.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write(make([]byte, 480))
	}))
	defer srv.Close()

	p, err := tts.NewElevenLabs(tts.WithAPIKey("el-key"), tts.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), tts.Request{Text: "Hazard ahead", VoiceID: "rachel", Speed: 0.9})
	require.NoError(t, err)

	assert.Equal(t, "/text-to-speech/21m00Tcm4TlvDq8ikWAM", path)
	assert.Equal(t, "pcm_24000", format)
	assert.Equal(t, tts.ModelTurboV2_5, got["model_id"])
	settings, ok := got["voice_settings"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.9, settings["speed"], 1e-9)
}

func TestResolveElevenLabsVoice(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"charlotte", "XB0fDUnXU5powFXDhCwa"},
		{"Rachel", "21m00Tcm4TlvDq8ikWAM"},
		{"custom-id", "custom-id"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tts.ResolveElevenLabsVoice(tt.in))
		})
	}
}
