package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"doublecheck/internal/approval"
	"doublecheck/internal/auth"
	"doublecheck/internal/check"
	"doublecheck/internal/config"

	"github.com/gin-gonic/gin"
)

func testRouter(t *testing.T, store check.Store, evaluator check.RuleEvaluator, actorID, role string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{}
	cfg.Check.PendingListLimit = 50
	cfg.Check.VelocityWindow = 24 * time.Hour

	h := Handlers{
		Engine:   check.NewEngine(store, evaluator),
		Workflow: approval.NewWorkflow(store),
		Store:    store,
		Config:   cfg,
	}

	r := gin.New()
	// Identity injection in place of the JWT middleware.
	r.Use(func(c *gin.Context) {
		if actorID != "" {
			ctx := auth.WithIdentity(c.Request.Context(), actorID, role)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	r.GET("/healthz", h.Health)
	r.POST("/v1/checks", h.Evaluate)
	r.GET("/v1/checks/pending", h.ListPending)
	r.GET("/v1/checks/:id", h.GetEntry)
	r.POST("/v1/checks/:id/approve", h.Approve)
	r.POST("/v1/checks/:id/reject", h.Reject)
	r.GET("/v1/actors/:actor_id/history", h.ActorHistory)
	return r
}

func allowAll() check.RuleEvaluator {
	return check.RuleEvaluatorFunc(func(ctx context.Context, req check.CheckRequest) (check.Verdict, []string, []string, error) {
		return check.VerdictAllow, nil, []string{"rule-1"}, nil
	})
}

func requireHuman() check.RuleEvaluator {
	return check.RuleEvaluatorFunc(func(ctx context.Context, req check.CheckRequest) (check.Verdict, []string, []string, error) {
		return check.VerdictRequireHuman, []string{"manual review"}, []string{"rule-1"}, nil
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid json response: %v: %s", err, w.Body.String())
		}
	}
	return w, out
}

func TestEvaluateEndpoint_PendingFlow(t *testing.T) {
	store := check.NewMemoryStore()
	r := testRouter(t, store, requireHuman(), "founder-1", "founder")

	// A risky payout is suspended.
	w, body := doJSON(t, r, http.MethodPost, "/v1/checks", `{
		"action_type": "WALLET_PAYOUT",
		"risk_level": "P0",
		"actor_kind": "human",
		"actor_id": "user-9",
		"payload": {"amount_minor": 90000}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["approval_status"] != string(check.ApprovalPending) {
		t.Fatalf("expected PENDING_FOUNDER, got %v", body["approval_status"])
	}

	// It shows up in the pending queue.
	w, body = doJSON(t, r, http.MethodGet, "/v1/checks/pending", "")
	if w.Code != http.StatusOK {
		t.Fatalf("pending: expected 200, got %d", w.Code)
	}
	entries := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(entries))
	}
	entryID := entries[0].(map[string]any)["id"].(string)

	// Approve it as founder-1.
	w, body = doJSON(t, r, http.MethodPost, "/v1/checks/"+entryID+"/approve", "")
	if w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	entry := body["entry"].(map[string]any)
	if entry["approval_status"] != string(check.ApprovalApproved) {
		t.Fatalf("expected APPROVED, got %v", entry["approval_status"])
	}
	if entry["approved_by"] != "founder-1" {
		t.Fatalf("expected approver recorded, got %v", entry["approved_by"])
	}

	// The queue is empty again.
	w, body = doJSON(t, r, http.MethodGet, "/v1/checks/pending", "")
	if w.Code != http.StatusOK {
		t.Fatalf("pending: expected 200, got %d", w.Code)
	}
	if body["entries"] != nil && len(body["entries"].([]any)) != 0 {
		t.Fatalf("expected empty pending queue")
	}

	// Rejecting after approval is a conflict that names the current state.
	w, body = doJSON(t, r, http.MethodPost, "/v1/checks/"+entryID+"/reject", `{"reason":"no"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("reject-after-approve: expected 409, got %d", w.Code)
	}
	if body["current_status"] != string(check.ApprovalApproved) {
		t.Fatalf("expected current status in conflict body, got %v", body)
	}
}

func TestEvaluateEndpoint_ValidationError(t *testing.T) {
	r := testRouter(t, check.NewMemoryStore(), allowAll(), "svc-1", "service")
	w, _ := doJSON(t, r, http.MethodPost, "/v1/checks", `{"action_type":"DANCE","risk_level":"P1","actor_kind":"human","actor_id":"u"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEvaluateEndpoint_DefaultsToCallerIdentity(t *testing.T) {
	store := check.NewMemoryStore()
	r := testRouter(t, store, allowAll(), "svc-1", "service")

	w, _ := doJSON(t, r, http.MethodPost, "/v1/checks", `{
		"action_type": "SCHEMA_MIGRATION",
		"risk_level": "P2",
		"actor_kind": "system"
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	hist, err := store.ListByActor(context.Background(), "svc-1", "", 10)
	if err != nil || len(hist) != 1 {
		t.Fatalf("expected evaluation attributed to the caller, got %v %v", hist, err)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	r := testRouter(t, check.NewMemoryStore(), allowAll(), "founder-1", "founder")
	w, _ := doJSON(t, r, http.MethodGet, "/v1/checks/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestEvaluateEndpoint_EvaluatorFailure(t *testing.T) {
	broken := check.RuleEvaluatorFunc(func(ctx context.Context, req check.CheckRequest) (check.Verdict, []string, []string, error) {
		return "", nil, nil, context.DeadlineExceeded
	})
	store := check.NewMemoryStore()
	r := testRouter(t, store, broken, "svc-1", "service")

	w, _ := doJSON(t, r, http.MethodPost, "/v1/checks", `{
		"action_type": "WALLET_PAYOUT",
		"risk_level": "P1",
		"actor_kind": "human",
		"actor_id": "user-1"
	}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if hist, _ := store.ListByActor(context.Background(), "user-1", "", 10); len(hist) != 0 {
		t.Fatalf("evaluator failure must not produce audit entries")
	}
}

func TestActorHistory_WithRecentCount(t *testing.T) {
	store := check.NewMemoryStore()
	r := testRouter(t, store, allowAll(), "founder-1", "founder")

	for i := 0; i < 3; i++ {
		w, _ := doJSON(t, r, http.MethodPost, "/v1/checks", `{
			"action_type": "WALLET_PAYOUT",
			"risk_level": "P2",
			"actor_kind": "human",
			"actor_id": "user-7"
		}`)
		if w.Code != http.StatusOK {
			t.Fatalf("evaluate %d: %d", i, w.Code)
		}
	}

	w, body := doJSON(t, r, http.MethodGet, "/v1/actors/user-7/history?action_type=WALLET_PAYOUT", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(body["entries"].([]any)) != 3 {
		t.Fatalf("expected 3 history entries, got %v", body["entries"])
	}
	if body["recent_count"].(float64) != 3 {
		t.Fatalf("expected recent_count 3, got %v", body["recent_count"])
	}
}

func TestHealth_NoSecrets(t *testing.T) {
	store := check.NewMemoryStore()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		App:  config.AppConfig{Env: "production"},
		DB:   config.DBConfig{Password: "hunter2"},
		Auth: config.AuthConfig{JWTSecret: "topsecret"},
	}
	h := Handlers{Store: store, Config: cfg}
	r := gin.New()
	r.GET("/healthz", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := w.Body.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "topsecret") {
		t.Fatalf("health endpoint leaked a secret: %s", out)
	}
	if !strings.Contains(out, `"status":"ok"`) {
		t.Fatalf("expected liveness status: %s", out)
	}
}
