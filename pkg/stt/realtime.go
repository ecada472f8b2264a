package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/voicemap/pkg/audioio"
	"github.com/teslashibe/voicemap/pkg/speech"
)

// Realtime is a speech.Recognizer that streams microphone audio to the
// transcription service for one turn at a time.
type Realtime struct {
	cfg    Config
	source audioio.Source
	dialer websocket.Dialer
	logger *slog.Logger
}

// New creates a Realtime recognizer capturing from source.
func New(cfg Config, source audioio.Source, logger *slog.Logger) (*Realtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Realtime{
		cfg:    cfg,
		source: source,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: logger.With("component", "stt.realtime"),
	}, nil
}

// Factory returns a speech.RecognizerFactory. Without an API key the
// capability is reported as unsupported.
func Factory(cfg Config, source audioio.Source, logger *slog.Logger) speech.RecognizerFactory {
	return func() (speech.Recognizer, error) {
		if cfg.APIKey == "" {
			return nil, speech.ErrNotSupported
		}
		return New(cfg, source, logger)
	}
}

func (r *Realtime) endpoint() (string, error) {
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("stt: parse url: %w", err)
	}
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(r.cfg.SampleRate))
	q.Set("encoding", "pcm_s16le")
	q.Set("format_turns", strconv.FormatBool(r.cfg.FormatTurns))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type turnResult struct {
	text string
	err  error
}

// Recognize captures one turn and returns its transcript.
func (r *Realtime) Recognize(ctx context.Context, locale string) (string, error) {
	if locale != "" && !strings.HasPrefix(strings.ToLower(locale), "en") {
		return "", &speech.RecognitionError{Code: speech.CodeLanguage, Err: fmt.Errorf("stt: locale %s", locale)}
	}

	listenCtx, cancel := context.WithTimeout(ctx, r.cfg.MaxListen)
	defer cancel()

	endpoint, err := r.endpoint()
	if err != nil {
		return "", err
	}

	header := http.Header{}
	header.Set("Authorization", r.cfg.APIKey)

	conn, resp, err := r.dialer.DialContext(listenCtx, endpoint, header)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		code := speech.CodeNetwork
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			code = speech.CodeNotAllowed
		}
		return "", &speech.RecognitionError{Code: code, Err: err}
	}
	defer conn.Close()

	if err := r.source.Start(listenCtx); err != nil {
		return "", &speech.RecognitionError{Code: speech.CodeAudioCapture, Err: err}
	}
	defer r.source.Stop()

	results := make(chan turnResult, 1)
	go r.readLoop(conn, results)

	stream := r.source.Stream()
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				stream = nil
				r.terminate(conn)
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk.Bytes()); err != nil {
				return "", &speech.RecognitionError{Code: speech.CodeNetwork, Err: err}
			}

		case res := <-results:
			r.terminate(conn)
			return res.text, res.err

		case <-listenCtx.Done():
			r.terminate(conn)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &speech.RecognitionError{Code: speech.CodeNoSpeech, Err: listenCtx.Err()}
		}
	}
}

func (r *Realtime) terminate(conn *websocket.Conn) {
	if err := conn.WriteJSON(terminateMessage); err != nil {
		r.logger.Debug("terminate failed", "error", err)
	}
}

func (r *Realtime) readLoop(conn *websocket.Conn, results chan<- turnResult) {
	deliver := func(res turnResult) {
		select {
		case results <- res:
		default:
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				deliver(turnResult{err: &speech.RecognitionError{Code: speech.CodeNetwork, Err: err}})
			} else {
				deliver(turnResult{err: &speech.RecognitionError{Code: speech.CodeNoSpeech}})
			}
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("invalid message", "error", err)
			continue
		}

		switch msg.Type {
		case typeBegin:
			r.logger.Debug("session began", "id", msg.ID)
		case typeTurn:
			if !msg.EndOfTurn || msg.Transcript == "" {
				continue
			}
			if r.cfg.FormatTurns && !msg.TurnIsFormatted {
				continue
			}
			deliver(turnResult{text: msg.Transcript})
			return
		case typeTermination:
			r.logger.Debug("session terminated", "audio_seconds", msg.AudioDurationSeconds)
			deliver(turnResult{err: &speech.RecognitionError{Code: speech.CodeNoSpeech}})
			return
		case typeError:
			deliver(turnResult{err: &speech.RecognitionError{Code: speech.CodeNetwork, Err: errors.New(msg.Error)}})
			return
		default:
			r.logger.Debug("unknown message type", "type", msg.Type)
		}
	}
}

var _ speech.Recognizer = (*Realtime)(nil)
