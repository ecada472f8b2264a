package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/voicemap/internal/httpc"
)

// errorParser turns a non-200 response into an error.
type errorParser func(resp *http.Response) error

// postAudio posts a JSON payload and returns the response body, retrying
// transport failures, rate limits and server errors.
func postAudio(ctx context.Context, cfg *Config, logger *slog.Logger, provider, url string,
	headers map[string]string, payload any, parse errorParser) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		resp, err := httpc.PostJSON(ctx, cfg.Client, url, headers, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError(provider, err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := parse(resp)
			resp.Body.Close()
			if ae, ok := apiErr.(*APIError); ok && ae.IsRetryable() {
				lastErr = apiErr
				logger.Warn("retrying request", "attempt", attempt+1, "status", resp.StatusCode)
				continue
			}
			return nil, apiErr
		}

		audio, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, WrapError(provider, fmt.Errorf("read response: %w", err))
		}
		return audio, nil
	}

	return nil, lastErr
}
