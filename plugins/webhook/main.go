// Package main provides a webhook plugin.
// It posts completed session reports as JSON to a configured URL.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ayusman/formcoach/internal/plugin"
	"github.com/ayusman/formcoach/internal/report"
)

// EnvURL overrides the URL from the manifest config.
const EnvURL = "FORMCOACH_WEBHOOK_URL"

// Config is the plugin section of plugin.json.
type Config struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout"`
}

// Payload is the body posted to the webhook.
type Payload struct {
	Event     string        `json:"event"`
	Session   string        `json:"session"`
	Exercise  string        `json:"exercise"`
	Reps      int           `json:"reps"`
	Report    report.Report `json:"report"`
	Timestamp time.Time     `json:"timestamp"`
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	writeResponse(handle(&req))
}

func handle(req *plugin.Request) error {
	if req.Event != plugin.EventSessionCompleted {
		return fmt.Errorf("unsupported event: %s", req.Event)
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		return err
	}

	timeout := 3 * time.Second
	if cfg.Timeout != "" {
		if timeout, err = time.ParseDuration(cfg.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
		}
	}

	body, err := json.Marshal(Payload{
		Event:     req.Event,
		Session:   req.Session,
		Exercise:  req.Exercise,
		Reps:      req.Reps,
		Report:    req.Report,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return post(ctx, cfg.URL, body)
}

func parseConfig(raw json.RawMessage) (Config, error) {
	var cfg Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config: %w", err)
		}
	}
	if url := os.Getenv(EnvURL); url != "" {
		cfg.URL = url
	}
	if cfg.URL == "" {
		return cfg, fmt.Errorf("url is required")
	}
	return cfg, nil
}

func post(ctx context.Context, url string, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to post report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// writeResponse writes the plugin response to stdout.
func writeResponse(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
