// Package vapi is a client for the voice-call provider's REST API.
package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultBaseURL = "https://api.vapi.ai"
	DefaultLimit   = 1000

	// Safety caps on the number of calls fetched by one ListCalls.
	MaxFilteredCalls   = 10000
	MaxUnfilteredCalls = 50000
)

var (
	ErrNoAPIKey = errors.New("vapi: api key not configured")
	ErrNotFound = errors.New("vapi: not found")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vapi: unexpected status %d: %s", e.Code, e.Body)
}

// KeySource yields the API key at request time so overrides apply without restart.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeySource returning a fixed key.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) { return string(k), nil }

type Client struct {
	baseURL string
	http    *http.Client
	keys    KeySource
	log     *slog.Logger

	// MaxElapsed bounds the retry loop of a single request.
	MaxElapsed time.Duration
}

func NewClient(baseURL string, timeout time.Duration, keys KeySource, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: timeout},
		keys:       keys,
		log:        log,
		MaxElapsed: 20 * time.Second,
	}
}

// get performs a GET with exponential backoff on network errors, 429 and 5xx.
// Other 4xx responses fail immediately.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.keys == nil {
		return nil, ErrNoAPIKey
	}
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve api key: %w", err)
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+key)
		req.Header.Set("Content-Type", "application/json")

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
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &StatusError{Code: resp.StatusCode, Body: string(b)}
		case resp.StatusCode >= 300:
			return backoff.Permanent(&StatusError{Code: resp.StatusCode, Body: string(b)})
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.MaxElapsed
	notify := func(err error, wait time.Duration) {
		c.log.Warn("vapi request retry", "path", path, "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

type ListCallsParams struct {
	// AssistantIDs restricts the listing; empty lists every call on the account.
	AssistantIDs []string
	CreatedAtGt  string
	CreatedAtLt  string
	// Limit is the page size. Defaults to DefaultLimit.
	Limit int
}

// ListCalls pages backwards through calls using the oldest createdAt of each
// page as the next createdAtLt cursor, and returns calls de-duplicated by id.
//
// Each assistant is paginated on its own cursor, so a busy assistant is
// walked to its own end regardless of the others. A failing assistant is
// logged and skipped, keeping the pages already read. Without assistant ids,
// errors are returned.
func (c *Client) ListCalls(ctx context.Context, p ListCallsParams) ([]Call, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	if len(p.AssistantIDs) == 0 {
		all, err := c.paginate(ctx, p, "", limit, MaxUnfilteredCalls)
		if err != nil {
			return nil, err
		}
		return dedupe(all), nil
	}

	var all []Call
	for _, id := range p.AssistantIDs {
		budget := MaxFilteredCalls - len(all)
		if budget <= 0 {
			c.log.Warn("call listing cap reached", "cap", MaxFilteredCalls)
			break
		}
		calls, err := c.paginate(ctx, p, id, limit, budget)
		all = append(all, calls...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn("list calls for assistant failed", "assistant_id", id, "err", err)
		}
	}
	return dedupe(all), nil
}

// paginate walks one listing (one assistant, or the whole account when
// assistantID is empty) until a short page, an unchanged cursor, or maxCalls.
// On error it returns the calls read so far alongside the error.
func (c *Client) paginate(ctx context.Context, p ListCallsParams, assistantID string, limit, maxCalls int) ([]Call, error) {
	var out []Call
	cursor := p.CreatedAtLt
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		page, err := c.listPage(ctx, p, assistantID, limit, cursor)
		if err != nil {
			return out, err
		}
		if len(page) == 0 {
			return out, nil
		}
		out = append(out, page...)

		next := oldestCursor(page)
		if len(page) < limit || len(out) >= maxCalls || next == "" || next == cursor {
			return out, nil
		}
		cursor = next
	}
}

func (c *Client) listPage(ctx context.Context, p ListCallsParams, assistantID string, limit int, cursor string) ([]Call, error) {
	q := url.Values{}
	if assistantID != "" {
		q.Set("assistantId", assistantID)
	}
	q.Set("limit", strconv.Itoa(limit))
	if p.CreatedAtGt != "" {
		q.Set("createdAtGt", p.CreatedAtGt)
	}
	if cursor != "" {
		q.Set("createdAtLt", cursor)
	}

	body, err := c.get(ctx, "/call", q)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	calls, err := decodeList[Call](body)
	if err != nil {
		return nil, fmt.Errorf("decode calls: %w", err)
	}
	return calls, nil
}

func oldestCursor(calls []Call) string {
	sorted := make([]Call, len(calls))
	copy(sorted, calls)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Cursor() < sorted[j].Cursor() })
	for _, c := range sorted {
		if c.Cursor() != "" {
			return c.Cursor()
		}
	}
	return ""
}

// dedupe keeps the last occurrence of each id at the position of its first.
func dedupe(calls []Call) []Call {
	idx := make(map[string]int, len(calls))
	out := make([]Call, 0, len(calls))
	for _, c := range calls {
		if i, ok := idx[c.ID]; ok {
			out[i] = c
			continue
		}
		idx[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

// GetAssistant fetches one assistant. An unknown id yields ErrNotFound.
func (c *Client) GetAssistant(ctx context.Context, id string) (Assistant, error) {
	var out Assistant
	body, err := c.get(ctx, "/assistant/"+url.PathEscape(id), nil)
	if err != nil {
		return out, fmt.Errorf("get assistant: %w", err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode assistant: %w", err)
	}
	return out, nil
}
