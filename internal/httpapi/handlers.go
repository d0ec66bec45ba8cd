package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"doublecheck/internal/approval"
	"doublecheck/internal/auth"
	"doublecheck/internal/check"
	"doublecheck/internal/config"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Engine   *check.Engine
	Workflow *approval.Workflow
	Store    check.Store
	Config   config.Config
}

// --- Auth ---

type loginRequest struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ActorID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "actor_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.ActorID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Checks ---

type evaluateRequest struct {
	ActionType string         `json:"action_type"`
	RiskLevel  string         `json:"risk_level"`
	ActorKind  string         `json:"actor_kind"`
	ActorID    string         `json:"actor_id"`
	Target     map[string]any `json:"target,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Evaluate runs one double-check for callers that cannot link the Go
// package. The verdict decides only whether the caller may proceed; the
// protected operation itself stays on the caller's side.
func (h Handlers) Evaluate(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	actorID := req.ActorID
	if actorID == "" {
		// Default to the authenticated caller.
		actorID, _ = auth.ActorID(c.Request.Context())
	}

	res, err := h.Engine.Evaluate(c.Request.Context(), check.CheckRequest{
		ActionType: check.ActionType(req.ActionType),
		RiskLevel:  check.RiskLevel(req.RiskLevel),
		ActorKind:  check.ActorKind(req.ActorKind),
		ActorID:    actorID,
		Target:     req.Target,
		Payload:    req.Payload,
		Metadata:   req.Metadata,
	})
	if err != nil {
		abortCheckError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) ListPending(c *gin.Context) {
	limit := h.Config.Check.PendingListLimit
	if v := c.Query("limit"); v != "" {
		if n, ok := parsePositiveInt(v); ok {
			limit = n
		}
	}
	entries, err := h.Store.ListPending(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "audit store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h Handlers) GetEntry(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}
	e, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		abortCheckError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h Handlers) Approve(c *gin.Context) {
	approverID, err := auth.ActorID(c.Request.Context())
	if err != nil || approverID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "actor_id required"})
		return
	}
	e, err := h.Workflow.Approve(c.Request.Context(), c.Param("id"), approverID)
	if err != nil {
		abortCheckError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entry": e})
}

func (h Handlers) Reject(c *gin.Context) {
	rejecterID, err := auth.ActorID(c.Request.Context())
	if err != nil || rejecterID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "actor_id required"})
		return
	}
	var req rejectRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	e, err := h.Workflow.Reject(c.Request.Context(), c.Param("id"), rejecterID, req.Reason)
	if err != nil {
		abortCheckError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entry": e})
}

func (h Handlers) ActorHistory(c *gin.Context) {
	actorID := c.Param("actor_id")
	if actorID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "actor_id required"})
		return
	}
	actionType := check.ActionType(c.Query("action_type"))
	if actionType != "" && !actionType.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown action_type"})
		return
	}

	limit := h.Config.Check.PendingListLimit
	if v := c.Query("limit"); v != "" {
		if n, ok := parsePositiveInt(v); ok {
			limit = n
		}
	}

	entries, err := h.Store.ListByActor(c.Request.Context(), actorID, actionType, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "audit store unavailable"})
		return
	}

	out := gin.H{"entries": entries}
	if actionType != "" {
		// Velocity view: trailing-window count for this actor/action pair.
		n, err := h.Store.CountRecent(c.Request.Context(), actorID, actionType, h.Config.Check.VelocityWindow)
		if err == nil {
			out["recent_count"] = n
			out["recent_window"] = h.Config.Check.VelocityWindow.String()
		}
	}
	c.JSON(http.StatusOK, out)
}

// Health reports liveness plus a secret-free config summary.
// Unauthenticated; must never expose credentials or DSNs.
func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "config": h.Config.Summary()})
}

// abortCheckError maps the gateway error taxonomy to HTTP status codes.
func abortCheckError(c *gin.Context, err error) {
	var invalid *check.InvalidStateError
	switch {
	case errors.As(err, &invalid):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":          "entry already handled",
			"current_status": invalid.Current,
		})
	case errors.Is(err, check.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, check.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "entry not found"})
	case errors.Is(err, check.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate correlation id"})
	case errors.Is(err, check.ErrEvaluatorFailure):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "rule evaluation failed"})
	case errors.Is(err, approval.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "audit store unavailable"})
	}
}

func parsePositiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
