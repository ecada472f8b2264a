package stt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/voicemap/pkg/audioio"
	"github.com/teslashibe/voicemap/pkg/speech"
)

var upgrader = websocket.Upgrader{}

// fakeService upgrades the connection, waits for one audio frame and then
// sends the scripted messages.
func fakeService(t *testing.T, script []message) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "16000", r.URL.Query().Get("sample_rate"))
		assert.Equal(t, "pcm_s16le", r.URL.Query().Get("encoding"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		kind, _, err := conn.ReadMessage()
		if err != nil {
			return
		}
		assert.Equal(t, websocket.BinaryMessage, kind)

		for _, m := range script {
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
		// drain until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testSource() *audioio.MockSource {
	chunk := audioio.AudioChunk{Samples: make([]int16, 160), SampleRate: 16000, Channels: 1}
	return audioio.NewMockSource(audioio.DefaultConfig(), chunk)
}

func newRecognizer(t *testing.T, srv *httptest.Server, src audioio.Source) *Realtime {
	t.Helper()
	cfg := DefaultConfig().WithAPIKey("test-key").WithURL(wsURL(srv)).WithMaxListen(2 * time.Second)
	r, err := New(cfg, src, nil)
	require.NoError(t, err)
	return r
}

func TestRealtime_ReturnsFinalTurn(t *testing.T) {
	srv := fakeService(t, []message{
		{Type: typeBegin, ID: "session-1"},
		{Type: typeTurn, Transcript: "where am", EndOfTurn: false},
		{Type: typeTurn, Transcript: "where am i", EndOfTurn: true, TurnIsFormatted: false},
		{Type: typeTurn, Transcript: "Where am I?", EndOfTurn: true, TurnIsFormatted: true},
	})
	defer srv.Close()

	src := testSource()
	r := newRecognizer(t, srv, src)

	text, err := r.Recognize(context.Background(), "en-US")
	require.NoError(t, err)
	assert.Equal(t, "Where am I?", text)
	assert.False(t, src.Running(), "source stopped after capture")
}

func TestRealtime_ServiceError(t *testing.T) {
	srv := fakeService(t, []message{{Type: typeError, Error: "quota exceeded"}})
	defer srv.Close()

	_, err := newRecognizer(t, srv, testSource()).Recognize(context.Background(), "en-US")
	var recErr *speech.RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, speech.CodeNetwork, recErr.Code)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRealtime_TerminationWithoutTurn(t *testing.T) {
	srv := fakeService(t, []message{{Type: typeTermination, AudioDurationSeconds: 1.5}})
	defer srv.Close()

	_, err := newRecognizer(t, srv, testSource()).Recognize(context.Background(), "en-US")
	var recErr *speech.RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, speech.CodeNoSpeech, recErr.Code)
}

func TestRealtime_MaxListen(t *testing.T) {
	srv := fakeService(t, nil)
	defer srv.Close()

	cfg := DefaultConfig().WithAPIKey("test-key").WithURL(wsURL(srv)).WithMaxListen(50 * time.Millisecond)
	r, err := New(cfg, testSource(), nil)
	require.NoError(t, err)

	_, err = r.Recognize(context.Background(), "en-US")
	var recErr *speech.RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, speech.CodeNoSpeech, recErr.Code)
}

func TestRealtime_CallerCancel(t *testing.T) {
	srv := fakeService(t, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := newRecognizer(t, srv, testSource()).Recognize(ctx, "en-US")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRealtime_Unauthorized(t *testing.T) {
	srv := fakeService(t, nil)
	defer srv.Close()

	cfg := DefaultConfig().WithAPIKey("wrong").WithURL(wsURL(srv))
	r, err := New(cfg, testSource(), nil)
	require.NoError(t, err)

	_, err = r.Recognize(context.Background(), "en-US")
	var recErr *speech.RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, speech.CodeNotAllowed, recErr.Code)
}

func TestRealtime_UnsupportedLocale(t *testing.T) {
	r, err := New(DefaultConfig().WithAPIKey("k"), testSource(), nil)
	require.NoError(t, err)

	_, err = r.Recognize(context.Background(), "fr-FR")
	var recErr *speech.RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, speech.CodeLanguage, recErr.Code)
}

func TestFactory(t *testing.T) {
	_, err := Factory(DefaultConfig(), testSource(), nil)()
	assert.True(t, errors.Is(err, speech.ErrNotSupported))

	rec, err := Factory(DefaultConfig().WithAPIKey("k"), testSource(), nil)()
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, DefaultConfig().Validate(), ErrNoAPIKey)
	assert.NoError(t, DefaultConfig().WithAPIKey("k").Validate())
	assert.Error(t, DefaultConfig().WithAPIKey("k").WithMaxListen(0).Validate())
}
