package apiserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/apiserver/handlers"
	"github.com/lightnindragon/listgenius/pkg/auth"
	"github.com/lightnindragon/listgenius/pkg/config"
	"github.com/lightnindragon/listgenius/pkg/queue"
)

type stubEnqueuer struct {
	requests []*queue.RunRequest
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, request *queue.RunRequest) error {
	s.requests = append(s.requests, request)
	return nil
}

func newTestServer(t *testing.T) (*Server, *auth.ServiceTokenManager, *stubEnqueuer) {
	t.Helper()

	logger := zap.NewNop()
	tokens := auth.NewServiceTokenManager([]byte("test-secret"), time.Hour)
	enqueuer := &stubEnqueuer{}

	server := NewServer(&config.ServerConfig{HTTPPort: 0}, Dependencies{
		Tokens: tokens,
		Runs:   handlers.NewRunHandler(nil, enqueuer, logger),
		Posts:  handlers.NewPostHandler(nil, logger),
	}, logger)

	return server, tokens, enqueuer
}

func TestHealthEndpointIsPublic(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestAPIRejectsInsufficientScope(t *testing.T) {
	server, tokens, _ := newTestServer(t)

	token, err := tokens.Generate("reporting", auth.ScopePostsRead)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	body := strings.NewReader(`{"owner_id":"` + uuid.NewString() + `"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing scope, got %d", w.Code)
	}
}

func TestCreateRunEnqueuesRequest(t *testing.T) {
	server, tokens, enqueuer := newTestServer(t)

	token, err := tokens.Generate("scheduler", auth.ScopeRunsWrite)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	ownerID := uuid.New()
	body := strings.NewReader(`{"owner_id":"` + ownerID.String() + `","requested_by":"ops"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(enqueuer.requests) != 1 {
		t.Fatalf("expected 1 enqueued request, got %d", len(enqueuer.requests))
	}
	if enqueuer.requests[0].OwnerID != ownerID {
		t.Fatalf("expected owner %s, got %s", ownerID, enqueuer.requests[0].OwnerID)
	}
	if enqueuer.requests[0].RequestedBy != "ops" {
		t.Fatalf("unexpected requested_by %q", enqueuer.requests[0].RequestedBy)
	}
}

func TestCreateRunRejectsInvalidOwner(t *testing.T) {
	server, tokens, enqueuer := newTestServer(t)

	token, err := tokens.Generate("scheduler", auth.ScopeRunsWrite)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"owner_id":"not-a-uuid"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(enqueuer.requests) != 0 {
		t.Fatalf("invalid request must not be enqueued, got %d", len(enqueuer.requests))
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	server.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
