package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"promptreel/internal/model"
)

// Config carries the explicit credentials and tuning for the remote
// backend. Nothing here is read from process-wide state.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration // per-call deadline
	MaxRetries  int
	MaxInflight int
}

// Remote talks to the generative-media backend over HTTP JSON. Calls
// acquire an inflight slot, carry a deadline, and retry transient
// failures with exponential backoff.
type Remote struct {
	cfg    Config
	client *http.Client
	sem    semaphore
}

const (
	defaultTimeout = 10 * time.Minute
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// NewRemote constructs the real backend client.
func NewRemote(cfg Config) (*Remote, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gateway: API key is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Remote{
		cfg:    cfg,
		client: &http.Client{},
		sem:    newSemaphore(cfg.MaxInflight),
	}, nil
}

var _ Gateway = (*Remote)(nil)

func (r *Remote) GenerateClipFromText(ctx context.Context, prompt string, provider model.Provider) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("gateway: empty prompt")
	}
	var out urlResponse
	err := r.call(ctx, "/v1/clips/from-text", map[string]any{
		"prompt":   prompt,
		"provider": string(provider),
	}, &out)
	return out.URL, err
}

func (r *Remote) GenerateClipFromImage(ctx context.Context, imagePath string) (string, error) {
	img, err := encodeFile(imagePath)
	if err != nil {
		return "", err
	}
	var out urlResponse
	err = r.call(ctx, "/v1/clips/from-image", map[string]any{"image": img}, &out)
	return out.URL, err
}

func (r *Remote) GenerateTransition(ctx context.Context, frameA, frameB string) (string, error) {
	a, err := encodeFile(frameA)
	if err != nil {
		return "", err
	}
	b, err := encodeFile(frameB)
	if err != nil {
		return "", err
	}
	var out urlResponse
	err = r.call(ctx, "/v1/clips/transition", map[string]any{
		"frame_a": a,
		"frame_b": b,
	}, &out)
	return out.URL, err
}

func (r *Remote) Interpolate(ctx context.Context, clipURL string) (string, error) {
	var out urlResponse
	err := r.call(ctx, "/v1/clips/interpolate", map[string]any{"url": clipURL}, &out)
	return out.URL, err
}

func (r *Remote) GenerateMusic(ctx context.Context, durationS float64, prompt string) (string, error) {
	if err := validateMusicDuration(durationS); err != nil {
		return "", err
	}
	var out urlResponse
	err := r.call(ctx, "/v1/music", map[string]any{
		"duration_s": durationS,
		"prompt":     prompt,
	}, &out)
	return out.URL, err
}

func (r *Remote) SynthesizeSpeech(ctx context.Context, text string) (string, error) {
	var out urlResponse
	err := r.call(ctx, "/v1/speech", map[string]any{"text": text}, &out)
	return out.URL, err
}

func (r *Remote) Transcribe(ctx context.Context, audioPath string) ([]model.Subtitle, error) {
	audio, err := encodeFile(audioPath)
	if err != nil {
		return nil, err
	}
	var out struct {
		Subtitles []struct {
			Index   int    `json:"index"`
			StartMs int    `json:"start_ms"`
			EndMs   int    `json:"end_ms"`
			Text    string `json:"text"`
		} `json:"subtitles"`
	}
	if err := r.call(ctx, "/v1/transcribe", map[string]any{"audio": audio}, &out); err != nil {
		return nil, err
	}
	subs := make([]model.Subtitle, 0, len(out.Subtitles))
	for _, s := range out.Subtitles {
		subs = append(subs, model.Subtitle{Index: s.Index, StartMs: s.StartMs, EndMs: s.EndMs, Text: s.Text})
	}
	return subs, nil
}

func (r *Remote) RewritePromptKeywords(ctx context.Context, text string, excluded []string) (string, string, error) {
	var out rewriteResponse
	err := r.call(ctx, "/v1/prompts/keywords", map[string]any{
		"text":     text,
		"excluded": excluded,
	}, &out)
	return out.Text, out.Title, err
}

func (r *Remote) RewritePromptEnhanced(ctx context.Context, text string) (string, string, error) {
	var out rewriteResponse
	err := r.call(ctx, "/v1/prompts/enhanced", map[string]any{"text": text}, &out)
	return out.Text, out.Title, err
}

type urlResponse struct {
	URL string `json:"url"`
}

type rewriteResponse struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

// call posts a JSON payload under an inflight slot, retrying transient
// failures up to the configured bound.
func (r *Remote) call(ctx context.Context, path string, payload any, out any) error {
	if err := r.sem.acquire(ctx); err != nil {
		return err
	}
	defer r.sem.release()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gateway: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}
		retriable, err := r.once(ctx, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retriable {
			return err
		}
	}
	return fmt.Errorf("gateway: %s failed after %d attempts: %w", path, r.cfg.MaxRetries, lastErr)
}

// once performs a single attempt. The bool reports whether the failure
// is transient (network error, timeout, 429 or 5xx).
func (r *Remote) once(ctx context.Context, path string, body []byte, out any) (bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Build cancelled: not worth retrying.
			return false, ctx.Err()
		}
		return true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return true, fmt.Errorf("gateway: %s status %d: %s", path, resp.StatusCode, redact(string(b), r.cfg.APIKey))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("gateway: %s status %d: %s", path, resp.StatusCode, redact(string(b), r.cfg.APIKey))
	}
	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("gateway: decode %s response: %w", path, err)
	}
	return false, nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff {
		d = maxBackoff
	}
	// Jitter spreads retries from concurrent nodes apart.
	d += time.Duration(rand.Int63n(int64(d) / 2))
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func encodeFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("gateway: read %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func redact(s, apiKey string) string {
	if apiKey != "" {
		s = strings.ReplaceAll(s, apiKey, "[REDACTED]")
	}
	if len(s) > 400 {
		s = s[:400]
	}
	return s
}
