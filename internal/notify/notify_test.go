package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifyPickup_PostsToAllURLs(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []PickupEnvelope
		hits = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var env PickupEnvelope
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		mu.Lock()
		got = append(got, env)
		hits[r.URL.Path]++
		mu.Unlock()
	}))
	defer srv.Close()

	n := New([]string{srv.URL + "/webhook-test/pickup", srv.URL + "/webhook/pickup"}, time.Second, discard())
	err := n.NotifyPickup(context.Background(), PickupEnvelope{CallID: "c1", CustomerID: 7, Summary: "s"})
	require.NoError(t, err)
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, 1, hits["/webhook-test/pickup"])
	assert.Equal(t, 1, hits["/webhook/pickup"])
	assert.Equal(t, "c1", got[0].CallID)
	assert.Equal(t, int64(7), got[0].CustomerID)
}

func TestNotifyPickup_DoesNotBlockOnSlowEndpoint(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	n := New([]string{srv.URL}, 200*time.Millisecond, discard())
	start := time.Now()
	require.NoError(t, n.NotifyPickup(context.Background(), PickupEnvelope{CallID: "c1"}))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	n.Wait()
	assert.Less(t, time.Since(start), 2*time.Second, "timeout must bound each post")
}

func TestNotifyPickup_FailuresAreSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New([]string{srv.URL, "http://127.0.0.1:1/unreachable"}, time.Second, discard())
	require.NoError(t, n.NotifyPickup(context.Background(), PickupEnvelope{CallID: "c1"}))
	n.Wait()
}

func TestNotifyPickup_SurvivesCallerCancel(t *testing.T) {
	hit := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit <- struct{}{}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	n := New([]string{srv.URL}, time.Second, discard())
	require.NoError(t, n.NotifyPickup(ctx, PickupEnvelope{CallID: "c1"}))
	cancel()
	n.Wait()

	select {
	case <-hit:
	default:
		t.Fatalf("post must complete after the caller's context is cancelled")
	}
}
