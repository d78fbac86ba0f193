// Package ai implements the transport to the external text-generation
// service: an OpenAI-compatible chat-completions endpoint with bounded
// timeouts and retry on transient failures. The service is treated as
// untrusted with respect to output shape; callers validate responses.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Config holds transport settings. Zero values fall back to defaults.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	HTTPTimeout      time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	MaxTokens        int
	Temperature      float64
}

// Client issues chat-completion calls with retry/backoff.
type Client struct {
	httpClient       *http.Client
	apiKey           string
	baseURL          string
	model            string
	maxTokens        int
	temperature      float64
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type choice struct {
	Message Message `json:"message"`
}

type generateResponse struct {
	ID      string   `json:"id"`
	Choices []choice `json:"choices"`
}

// NewClient builds a client for the configured provider.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 4 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	return &Client{
		httpClient:       &http.Client{Timeout: cfg.HTTPTimeout},
		apiKey:           cfg.APIKey,
		baseURL:          cfg.BaseURL,
		model:            cfg.Model,
		maxTokens:        cfg.MaxTokens,
		temperature:      cfg.Temperature,
		retryMaxAttempts: cfg.RetryMaxAttempts,
		retryBaseDelay:   cfg.RetryBaseDelay,
		retryMaxDelay:    cfg.RetryMaxDelay,
	}
}

// Complete sends one system+user message pair and returns the raw
// assistant text. Transient failures (timeouts, 429, 5xx) are retried
// with exponential backoff and jitter; Retry-After is honored.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, c.maxTokens)
}

// Ping sends a minimal prompt with a short deadline to verify the
// service is reachable. Returns the round-trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	if _, err := c.complete(ctx, "", "Respond with OK only.", 5); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("generation api key is missing")
	}
	if c.model == "" {
		return "", errors.New("generation model is not configured")
	}
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})
	payload, err := json.Marshal(generateRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	backoff := c.retryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableNetErr(err) && attempt < c.retryMaxAttempts {
				lastErr = err
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			return "", fmt.Errorf("http request: %w", err)
		}

		content, retry, err := c.handleResponse(resp)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retry || attempt >= c.retryMaxAttempts {
			break
		}
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			time.Sleep(rl.RetryAfter)
			continue
		}
		sleep := withJitter(backoff)
		if sleep > c.retryMaxDelay {
			sleep = c.retryMaxDelay
		}
		time.Sleep(sleep)
		backoff *= 2
	}
	return "", lastErr
}

// handleResponse consumes and closes the body. The bool reports whether
// the failure is retryable.
func (c *Client) handleResponse(resp *http.Response) (string, bool, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		var raw map[string]any
		_ = json.Unmarshal(body, &raw)
		apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw}
		if v, ok := raw["error"].(map[string]any); ok {
			if msg, ok := v["message"].(string); ok {
				apiErr.Message = msg
			}
			if code, ok := v["code"].(string); ok {
				apiErr.Code = code
			}
		}
		classified := classifyAPIError(apiErr, resp)
		retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
		return "", retryable, classified
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", false, errors.New("response contained no choices")
	}
	return out.Choices[0].Message.Content, false, nil
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

// parseRetryAfterSeconds interprets a Retry-After header value as
// seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case apiErr.StatusCode == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case apiErr.StatusCode == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// withJitter applies +/- 20% jitter to a backoff duration.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
