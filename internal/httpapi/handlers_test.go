package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurora-dashboard/internal/apikey"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/internal/cache"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/customers"
	"aurora-dashboard/internal/events"
	"aurora-dashboard/internal/notify"
	"aurora-dashboard/internal/payload"
	"aurora-dashboard/internal/realtime"
	"aurora-dashboard/internal/reporting"
	"aurora-dashboard/internal/satisfaction"
	"aurora-dashboard/internal/vapi"
)

const testCustomer = int64(12)

func identity(customerID int64, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "user-1", customerID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newRouter(h Handlers, customerID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/v1", identity(customerID, "owner"))
	v1.GET("/stats", h.GetStats)
	v1.GET("/agents", h.ListAgents)
	v1.GET("/calls", h.ListCalls)
	v1.POST("/calls/sync", h.SyncCalls)
	v1.GET("/calls/new", h.HasNewCalls)
	v1.GET("/calls/:id/rating", h.RateCall)
	v1.GET("/events", h.ListEvents)
	v1.DELETE("/events", h.ClearEvents)
	v1.DELETE("/events/:id", h.DismissEvent)
	v1.POST("/events/:id/pickup", h.PickupEvent)
	v1.GET("/events/stream", h.StreamEvents)
	v1.PUT("/settings/provider-key", h.SetProviderKey)
	return r
}

func do(r http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func f64(v float64) *float64 { return &v }

func ts(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func TestGetStats_SnapshotWithPlan(t *testing.T) {
	repo := reporting.NewMemoryRepo()
	repo.Calls = []calls.CallRecord{
		{CustomerID: testCustomer, Duration: f64(120), Status: calls.CallStatusEnded},
		{CustomerID: testCustomer, Duration: f64(60), Status: calls.CallStatusInProgress, EndedReason: "assistant-forwarded-call"},
		{CustomerID: 99, Duration: f64(600)},
	}
	plans := customers.NewService(customers.NewMemoryRepo(customers.Customer{ID: testCustomer, Plan: customers.PlanPro}))
	h := Handlers{Stats: reporting.NewService(repo, cache.NewMemory(), nil), Plans: plans}

	w := do(newRouter(h, testCustomer), http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, float64(2), got["totalCalls"])
	assert.Equal(t, float64(1), got["live"])
	assert.Equal(t, float64(1), got["transferred"])
	assert.Equal(t, float64(3), got["totalMinutesUsed"])
	assert.Equal(t, "pro", got["plan"])
	assert.Equal(t, float64(1000), got["planMinutes"])
}

type failingStats struct{}

func (failingStats) Stats(context.Context, int64) (reporting.StatsSnapshot, error) {
	return reporting.StatsSnapshot{}, errors.New("db down")
}
func (failingStats) Invalidate(context.Context, int64) {}

func TestGetStats_DegradesToZeros(t *testing.T) {
	w := do(newRouter(Handlers{Stats: failingStats{}}, testCustomer), http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalCalls":0,"live":0,"transferred":0,"totalMinutesUsed":0,"plan":"","planMinutes":0}`, w.Body.String())
}

type fakeAssistants map[string]error

func (f fakeAssistants) GetAssistant(_ context.Context, id string) (vapi.Assistant, error) {
	if err, ok := f[id]; ok && err != nil {
		return vapi.Assistant{}, err
	}
	return vapi.Assistant{ID: id, Name: "Desk " + id}, nil
}

func TestListAgents_ChecksEachAssistant(t *testing.T) {
	repo := customers.NewMemoryRepo(customers.Customer{ID: testCustomer, Agents: "FR:a1\nEN:gone\nEN:flaky"})
	h := Handlers{
		Agents: customers.NewService(repo),
		Assistants: fakeAssistants{
			"gone":  vapi.ErrNotFound,
			"flaky": errors.New("upstream down"),
		},
	}
	w := do(newRouter(h, testCustomer), http.MethodGet, "/v1/agents", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Agents []agentView `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Agents, 3)
	assert.Equal(t, "FR", body.Agents[0].Language)
	assert.Equal(t, "Desk a1", body.Agents[0].Name)
	require.NotNil(t, body.Agents[0].Found)
	assert.True(t, *body.Agents[0].Found)
	for _, a := range body.Agents[1:] {
		require.NotNil(t, a.Found, a.AgentID)
		assert.False(t, *a.Found, a.AgentID)
		assert.Empty(t, a.Name)
	}
}

func TestListAgents_WithoutLookup(t *testing.T) {
	repo := customers.NewMemoryRepo(customers.Customer{ID: testCustomer, Agents: "a1;a2"})
	w := do(newRouter(Handlers{Agents: customers.NewService(repo)}, testCustomer), http.MethodGet, "/v1/agents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"agents":[{"language":"UNKNOWN","agent_id":"a1"},{"language":"UNKNOWN","agent_id":"a2"}]}`, w.Body.String())

	w = do(newRouter(Handlers{}, testCustomer), http.MethodGet, "/v1/agents", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListCalls_AddsSatisfaction(t *testing.T) {
	repo := calls.NewMemoryRepo()
	_, err := repo.InsertNew(context.Background(), []calls.CallRecord{
		{CustomerID: testCustomer, ExternalCallID: "a", StartedAt: ts("2025-01-01T10:00:00Z"), Summary: "thanks, excellent"},
		{CustomerID: testCustomer, ExternalCallID: "b", StartedAt: ts("2025-01-02T10:00:00Z"), Duration: f64(90)},
		{CustomerID: 99, ExternalCallID: "c"},
	})
	require.NoError(t, err)

	w := do(newRouter(Handlers{Calls: repo}, testCustomer), http.MethodGet, "/v1/calls?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		Calls []struct {
			ExternalCallID   string  `json:"vapi_call_id"`
			Minutes          float64 `json:"minutes"`
			Satisfaction     int     `json:"satisfaction"`
			SatisfactionBand string  `json:"satisfactionBand"`
		} `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Calls, 2)
	assert.Equal(t, "b", got.Calls[0].ExternalCallID)
	assert.Equal(t, 1.5, got.Calls[0].Minutes)
	assert.Equal(t, 50, got.Calls[0].Satisfaction)
	assert.Equal(t, "a", got.Calls[1].ExternalCallID)
	assert.Greater(t, got.Calls[1].Satisfaction, 50)
	assert.NotEmpty(t, got.Calls[1].SatisfactionBand)
}

type fixedRater struct{ got []int64 }

func (r *fixedRater) Rate(_ context.Context, rec calls.CallRecord) satisfaction.Rating {
	r.got = append(r.got, rec.ID)
	return satisfaction.ParseRating(`{"score": 88, "reasoning": "warm and quick"}`)
}

func TestRateCall(t *testing.T) {
	repo := calls.NewMemoryRepo()
	_, err := repo.InsertNew(context.Background(), []calls.CallRecord{
		{CustomerID: testCustomer, ExternalCallID: "mine"},
		{CustomerID: 99, ExternalCallID: "theirs"},
	})
	require.NoError(t, err)
	mine, theirs := repo.Records()[0].ID, repo.Records()[1].ID

	rater := &fixedRater{}
	r := newRouter(Handlers{Calls: repo, Rater: rater}, testCustomer)

	w := do(r, http.MethodGet, fmt.Sprintf("/v1/calls/%d/rating", mine), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		CallID int64               `json:"call_id"`
		Rating satisfaction.Rating `json:"rating"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, mine, body.CallID)
	assert.Equal(t, 88, body.Rating.Score)
	assert.Equal(t, satisfaction.SourceLLM, body.Rating.Source)

	w = do(r, http.MethodGet, fmt.Sprintf("/v1/calls/%d/rating", theirs), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []int64{mine}, rater.got)

	w = do(r, http.MethodGet, "/v1/calls/abc/rating", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateCall_DefaultsToKeywords(t *testing.T) {
	repo := calls.NewMemoryRepo()
	_, err := repo.InsertNew(context.Background(), []calls.CallRecord{
		{CustomerID: testCustomer, ExternalCallID: "c1", Summary: "thanks, excellent"},
	})
	require.NoError(t, err)

	w := do(newRouter(Handlers{Calls: repo}, testCustomer), http.MethodGet, fmt.Sprintf("/v1/calls/%d/rating", repo.Records()[0].ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"keywords"`)
}

func TestListCalls_BadLimit(t *testing.T) {
	w := do(newRouter(Handlers{Calls: calls.NewMemoryRepo()}, testCustomer), http.MethodGet, "/v1/calls?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeSync struct {
	res    calls.SyncResult
	err    error
	hasNew bool
	newErr error
}

func (f fakeSync) Sync(context.Context, int64) (calls.SyncResult, error) { return f.res, f.err }
func (f fakeSync) HasNewCalls(context.Context, int64) (bool, error)      { return f.hasNew, f.newErr }

type countingStats struct {
	failingStats
	invalidated int
}

func (c *countingStats) Invalidate(context.Context, int64) { c.invalidated++ }

func TestSyncCalls(t *testing.T) {
	stats := &countingStats{}
	auditRepo := audit.NewMemoryRepo()
	h := Handlers{Sync: fakeSync{res: calls.SyncResult{Synced: 4, New: 2}}, Stats: stats, Audit: audit.NewService(auditRepo)}

	w := do(newRouter(h, testCustomer), http.MethodPost, "/v1/calls/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"synced":4,"new":2}`, w.Body.String())
	assert.Equal(t, 1, stats.invalidated)
	require.Len(t, auditRepo.Events(), 1)
	assert.Equal(t, audit.EventTypeSync, auditRepo.Events()[0].Type)
}

func TestSyncCalls_Conflict(t *testing.T) {
	h := Handlers{Sync: fakeSync{err: calls.ErrSyncInProgress}}
	w := do(newRouter(h, testCustomer), http.MethodPost, "/v1/calls/sync", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHasNewCalls_ErrorMeansTrue(t *testing.T) {
	h := Handlers{Sync: fakeSync{newErr: errors.New("provider down")}}
	w := do(newRouter(h, testCustomer), http.MethodGet, "/v1/calls/new", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasNew":true}`, w.Body.String())
}

func seedEvents(t *testing.T) *events.MemoryRepo {
	t.Helper()
	repo := events.NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, p := range []string{
		`{"body":"Customer asked for refund","type":"transfer","call_id":"c-1"}`,
		`{"body":null,"type":null,"call_id":null}`,
	} {
		callID := ""
		if i == 0 {
			callID = "c-1"
		}
		_, err := repo.Insert(ctx, events.Event{
			CustomerID: testCustomer,
			EventType:  events.EventTypeToolCall,
			Payload:    json.RawMessage(p),
			CallID:     callID,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, events.Event{CustomerID: 99, Payload: json.RawMessage(`{}`), CreatedAt: base})
	require.NoError(t, err)
	return repo
}

func TestListEvents_NormalizesAndLocalizes(t *testing.T) {
	h := Handlers{Events: seedEvents(t)}

	w := do(newRouter(h, testCustomer), http.MethodGet, "/v1/events", "", "Accept-Language", "en-US,en;q=0.8")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Events []events.View `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Events, 2)
	assert.Equal(t, payload.NoSummary(payload.LocaleEN), got.Events[0].Summary)
	assert.Equal(t, "Customer asked for refund", got.Events[1].Summary)
	assert.Equal(t, "transfer", got.Events[1].DisplayType)
}

func TestDismissEvent(t *testing.T) {
	repo := seedEvents(t)
	auditRepo := audit.NewMemoryRepo()
	r := newRouter(Handlers{Events: repo, Audit: audit.NewService(auditRepo)}, testCustomer)

	w := do(r, http.MethodDelete, "/v1/events/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodDelete, "/v1/events/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	// Another customer's event is invisible.
	w = do(r, http.MethodDelete, "/v1/events/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodDelete, "/v1/events/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Len(t, auditRepo.Events(), 1)
	assert.Equal(t, int64(1), auditRepo.Events()[0].EventID)
}

func TestClearEvents(t *testing.T) {
	repo := seedEvents(t)
	w := do(newRouter(Handlers{Events: repo}, testCustomer), http.MethodDelete, "/v1/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":2}`, w.Body.String())
	assert.Len(t, repo.Events(), 1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	envs []notify.PickupEnvelope
}

func (n *recordingNotifier) NotifyPickup(_ context.Context, env notify.PickupEnvelope) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.envs = append(n.envs, env)
	return nil
}

func TestPickupEvent(t *testing.T) {
	n := &recordingNotifier{}
	r := newRouter(Handlers{Events: seedEvents(t), Notifier: n}, testCustomer)

	w := do(r, http.MethodPost, "/v1/events/1/pickup", "", "Accept-Language", "en")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, n.envs, 1)
	env := n.envs[0]
	assert.Equal(t, "c-1", env.CallID)
	assert.Equal(t, testCustomer, env.CustomerID)
	assert.Equal(t, "transfer", env.CallType)
	assert.Equal(t, "Customer asked for refund", env.Summary)

	w = do(r, http.MethodPost, "/v1/events/2/pickup", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodPost, "/v1/events/42/pickup", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, n.envs, 1)
}

func TestSetProviderKey(t *testing.T) {
	store := apikey.NewMemoryStore()
	resolver := apikey.NewResolver(nil, store, map[string]string{apikey.ProviderPrivateKey: "default"}, nil)
	auditRepo := audit.NewMemoryRepo()
	r := newRouter(Handlers{Settings: resolver, Audit: audit.NewService(auditRepo)}, testCustomer)

	w := do(r, http.MethodPut, "/v1/settings/provider-key", `{"value":"sk-live"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"setting":"vapi_private_key","origin":"override"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sk-live")

	v, origin := resolver.Resolve(context.Background(), apikey.ProviderPrivateKey)
	assert.Equal(t, "sk-live", v)
	assert.Equal(t, apikey.OriginOverride, origin)

	w = do(r, http.MethodPut, "/v1/settings/provider-key", `{"name":"jwt_secret","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Len(t, auditRepo.Events(), 1)
	assert.NotContains(t, string(auditRepo.Events()[0].Metadata), "sk-live")
}

func TestStreamEvents_DeliversOwnCustomerOnly(t *testing.T) {
	hub := realtime.NewHub()
	srv := httptest.NewServer(newRouter(Handlers{Stream: hub, KeepAlive: time.Hour}, testCustomer))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return hub.Subscribers(testCustomer) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), events.Event{ID: 5, CustomerID: 99, CallID: "other"}))
	require.NoError(t, hub.Publish(context.Background(), events.Event{ID: 6, CustomerID: testCustomer, CallID: "mine", Payload: json.RawMessage(`{"body":"hi"}`)}))

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	deadline := time.After(2 * time.Second)
	var sawReady bool
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if strings.HasPrefix(line, "event:ready") {
				sawReady = true
			}
			if strings.HasPrefix(line, "data:") && strings.Contains(line, `"call_id"`) {
				assert.True(t, sawReady)
				assert.Contains(t, line, "mine")
				assert.NotContains(t, line, "other")
				return
			}
		case <-deadline:
			t.Fatalf("no event streamed")
		}
	}
}
