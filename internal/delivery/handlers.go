package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPHandler posts each envelope as JSON to url. A non-empty token is sent
// as a bearer credential.
func HTTPHandler(url, token string, client *http.Client) Handler {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return func(ctx context.Context, env Envelope) error {
		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("deliver to %s: %w", env.Lane, err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("deliver to %s: status %d %s", env.Lane, resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil
	}
}

// LogHandler records envelopes in the log instead of sending them anywhere.
func LogHandler() Handler {
	return func(_ context.Context, env Envelope) error {
		slog.Info("command delivered", "lane", string(env.Lane), "name", env.Name, "source", env.Source, "text", env.Text)
		return nil
	}
}
