// Package notify sends best-effort "pickup" notifications to the workflow engine.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const DefaultTimeout = 5 * time.Second

// PickupEnvelope is the JSON body posted to each pickup webhook.
type PickupEnvelope struct {
	CallID     string          `json:"call_id"`
	CustomerID int64           `json:"customer_id"`
	EventType  string          `json:"event_type"`
	CallType   string          `json:"call_type,omitempty"`
	Summary    string          `json:"summary"`
	CreatedAt  time.Time       `json:"created_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Notifier posts envelopes to every configured URL in the background.
// Delivery failures are logged at warn and never reported to the caller.
type Notifier struct {
	urls    []string
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger

	wg sync.WaitGroup
}

func New(urls []string, timeout time.Duration, log *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		urls:    append([]string(nil), urls...),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log,
	}
}

// NotifyPickup schedules one POST per URL and returns immediately.
// The requests are detached from ctx cancellation but keep its values.
func (n *Notifier) NotifyPickup(ctx context.Context, env PickupEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal pickup envelope: %w", err)
	}
	base := context.WithoutCancel(ctx)
	for _, u := range n.urls {
		n.wg.Add(1)
		go func(url string) {
			defer n.wg.Done()
			n.post(base, url, body, env.CallID)
		}(u)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, url string, body []byte, callID string) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("pickup webhook request failed", "url", url, "call_id", callID, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("pickup webhook failed", "url", url, "call_id", callID, "err", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		n.log.Warn("pickup webhook rejected", "url", url, "call_id", callID, "status", resp.StatusCode)
		return
	}
	n.log.Debug("pickup webhook sent", "url", url, "call_id", callID)
}

// Wait blocks until all scheduled posts have finished, for graceful shutdown.
func (n *Notifier) Wait() { n.wg.Wait() }
