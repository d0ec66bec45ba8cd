package check

import (
	"context"
	"time"
)

// Entry is one persisted audit record, created once per evaluated request.
//
// Invariants:
// - Every field except ApprovalStatus, ApprovedBy, RejectedBy, RejectReason
//   and ApprovalAt is write-once at creation.
// - The log is otherwise append-only: entries are never deleted. Retention is
//   a policy decision outside this core.
// - ApprovalStatus transitions at most once (PENDING_FOUNDER -> APPROVED or
//   REJECTED) via the store's conditional update.
type Entry struct {
	ID            string `json:"id" db:"id"`
	CorrelationID string `json:"correlation_id" db:"correlation_id"`

	ActionType ActionType `json:"action_type" db:"action_type"`
	RiskLevel  RiskLevel  `json:"risk_level" db:"risk_level"`
	ActorKind  ActorKind  `json:"actor_kind" db:"actor_kind"`
	ActorID    string     `json:"actor_id" db:"actor_id"`

	Target   map[string]any `json:"target,omitempty" db:"target"`
	Payload  map[string]any `json:"payload,omitempty" db:"payload"`
	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`

	RulesEvaluated []string `json:"rules_evaluated,omitempty" db:"rules_evaluated"`
	Verdict        Verdict  `json:"verdict" db:"verdict"`
	Reasons        []string `json:"reasons,omitempty" db:"reasons"`

	ApprovalStatus ApprovalStatus `json:"approval_status" db:"approval_status"`
	ApprovedBy     string         `json:"approved_by,omitempty" db:"approved_by"`
	RejectedBy     string         `json:"rejected_by,omitempty" db:"rejected_by"`
	RejectReason   string         `json:"reject_reason,omitempty" db:"reject_reason"`
	ApprovalAt     *time.Time     `json:"approval_at,omitempty" db:"approval_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Resolution carries the reviewer identity applied by UpdateApprovalStatus.
type Resolution struct {
	Status ApprovalStatus
	// ActorID is the approver or rejecter.
	ActorID string
	// Reason is optional and only meaningful for rejections.
	Reason string
	At     time.Time
}

// Store is the persistence contract for audit entries.
//
// It MUST be append-mostly: the only permitted mutation is
// UpdateApprovalStatus, and implementations must perform it as an atomic
// conditional update that matches only entries still in PENDING_FOUNDER.
// That compare-and-swap is what prevents two reviewers from both
// "successfully" resolving the same entry.
type Store interface {
	// Append inserts a new entry. Returns ErrConflict if an entry with the
	// same correlation id already exists.
	Append(ctx context.Context, e Entry) error

	// Get returns the entry by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (Entry, error)

	// ListPending returns entries awaiting review, newest first, bounded by
	// limit.
	ListPending(ctx context.Context, limit int) ([]Entry, error)

	// UpdateApprovalStatus conditionally resolves a pending entry. Returns
	// false when no pending entry matched (already resolved, or missing).
	UpdateApprovalStatus(ctx context.Context, id string, res Resolution) (bool, error)

	// ListByActor returns an actor's history, newest first, optionally
	// filtered by action type (empty means all), bounded by limit.
	ListByActor(ctx context.Context, actorID string, actionType ActionType, limit int) ([]Entry, error)

	// CountRecent counts an actor's entries for one action type created
	// within the trailing window. This is the velocity-detection primitive.
	CountRecent(ctx context.Context, actorID string, actionType ActionType, window time.Duration) (int, error)
}
