package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/apikey"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/internal/config"
	"aurora-dashboard/internal/events"
	"aurora-dashboard/internal/httpapi"
	"aurora-dashboard/internal/ingest"
)

func testRouter(t *testing.T) (*gin.Engine, *auth.Manager, *events.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	repo := events.NewMemoryRepo()
	r := gin.New()
	registerRoutes(r, routeDeps{
		auth: auth.RequireAccessToken(m),
		handlers: httpapi.Handlers{
			Events:   repo,
			Settings: apikey.NewResolver(nil, apikey.NewMemoryStore(), nil, nil),
		},
		webhook: ingest.Handler{Events: repo},
	})
	return r, m, repo
}

func TestRoutes_WebhookToEventList(t *testing.T) {
	r, m, repo := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/n8n", strings.NewReader(`[{"valeur":"4","body":"Rappeler le client","call_id":"c-1"}]`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(repo.Events()) != 1 {
		t.Fatalf("expected one stored event")
	}

	tok, _ := m.Issue(time.Now(), "u", 4, "member")
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Rappeler le client") {
		t.Fatalf("expected event in list, got %d: %s", w.Code, w.Body.String())
	}

	// Another customer sees nothing.
	tok, _ = m.Issue(time.Now(), "u", 5, "member")
	req = httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if strings.Contains(w.Body.String(), "Rappeler") {
		t.Fatalf("customer 5 saw customer 4's event: %s", w.Body.String())
	}
}

func TestRoutes_ProtectedRequiresToken(t *testing.T) {
	r, _, _ := testRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRoutes_SettingsRequireManager(t *testing.T) {
	r, m, _ := testRouter(t)

	for role, want := range map[string]int{"member": http.StatusForbidden, "admin": http.StatusOK, "owner": http.StatusOK} {
		tok, _ := m.Issue(time.Now(), "u", 4, role)
		req := httptest.NewRequest(http.MethodPut, "/v1/settings/provider-key", strings.NewReader(`{"value":"k"}`))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", role, want, w.Code)
		}
	}
}

func TestRoutes_Health(t *testing.T) {
	r, _, _ := testRouter(t)
	for _, p := range []string{"/healthz", "/readyz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", p, w.Code)
		}
	}
}
