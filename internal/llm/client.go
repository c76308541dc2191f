// Package llm is a minimal client for OpenAI-compatible chat completions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrNotConfigured = errors.New("llm: base url not configured")
	ErrEmptyResponse = errors.New("llm: response has no choices")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: unexpected status %d: %s", e.Code, e.Body)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     *slog.Logger

	Temperature float64
	MaxTokens   int
	// MaxElapsed bounds the retry loop of a single completion.
	MaxElapsed time.Duration
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		http:        &http.Client{Timeout: timeout},
		log:         log,
		Temperature: 0.3,
		MaxTokens:   500,
		MaxElapsed:  20 * time.Second,
	}
}

// Complete posts the conversation to /chat/completions and returns the first
// choice's content. Network errors, 429 and 5xx are retried.
func (c *Client) Complete(ctx context.Context, msgs []Message) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}
	u := c.baseURL + "/chat/completions"

	var out chatResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &StatusError{Code: resp.StatusCode, Body: string(b)}
		case resp.StatusCode >= 300:
			return backoff.Permanent(&StatusError{Code: resp.StatusCode, Body: string(b)})
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode chat response: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.MaxElapsed
	notify := func(err error, wait time.Duration) {
		c.log.Warn("llm request retry", "model", c.model, "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}
