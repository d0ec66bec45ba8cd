package check

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType classifies the sensitive operation being attempted.
// Keep these stable; they are persisted in audit entries and referenced
// by rule configuration.
type ActionType string

const (
	ActionWalletPayout     ActionType = "WALLET_PAYOUT"
	ActionWalletAdjustment ActionType = "WALLET_ADJUSTMENT"
	ActionSchemaMigration  ActionType = "SCHEMA_MIGRATION"
	ActionDataMigration    ActionType = "DATA_MIGRATION"
	ActionAccountPrivilege ActionType = "ACCOUNT_PRIVILEGE_CHANGE"
	ActionBulkDelete       ActionType = "BULK_DELETE"
	ActionConfigChange     ActionType = "CONFIG_CHANGE"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionWalletPayout, ActionWalletAdjustment, ActionSchemaMigration,
		ActionDataMigration, ActionAccountPrivilege, ActionBulkDelete, ActionConfigChange:
		return true
	default:
		return false
	}
}

// RiskLevel is an axis independent of ActionType: any action may be tagged
// at any level by the caller. P0 is the highest severity.
type RiskLevel string

const (
	RiskP0 RiskLevel = "P0"
	RiskP1 RiskLevel = "P1"
	RiskP2 RiskLevel = "P2"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskP0, RiskP1, RiskP2:
		return true
	default:
		return false
	}
}

// ActorKind distinguishes interactive callers from background jobs.
type ActorKind string

const (
	ActorHuman  ActorKind = "human"
	ActorSystem ActorKind = "system"
)

func (k ActorKind) Valid() bool {
	return k == ActorHuman || k == ActorSystem
}

// Verdict is the one-time output of rule evaluation. Immutable once produced.
type Verdict string

const (
	VerdictAllow        Verdict = "ALLOW"
	VerdictDeny         Verdict = "DENY"
	VerdictRequireHuman Verdict = "REQUIRE_HUMAN"
)

// ApprovalStatus is the mutable lifecycle field on a persisted entry,
// derived from (but distinct from) the Verdict.
//
// State machine:
//
//	ALLOW, DENY      -> AUTO (terminal)
//	REQUIRE_HUMAN    -> PENDING_FOUNDER
//	PENDING_FOUNDER  -> APPROVED | REJECTED (terminal, human action)
type ApprovalStatus string

const (
	ApprovalAuto     ApprovalStatus = "AUTO"
	ApprovalPending  ApprovalStatus = "PENDING_FOUNDER"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// InitialApprovalStatus maps a verdict to the entry's starting approval state.
// This mapping is fixed; no other mapping is possible.
func InitialApprovalStatus(v Verdict) ApprovalStatus {
	if v == VerdictRequireHuman {
		return ApprovalPending
	}
	return ApprovalAuto
}

// CheckRequest is the ephemeral input to one evaluation. It is never
// persisted as-is; the engine snapshots it into an audit entry.
type CheckRequest struct {
	ActionType ActionType
	RiskLevel  RiskLevel
	ActorKind  ActorKind
	ActorID    string

	// Target identifies what is being acted on (e.g. wallet id, table name).
	Target map[string]any
	// Payload is a snapshot of the attempted input.
	Payload map[string]any
	// Metadata carries caller context such as the originating operation name.
	Metadata map[string]any
}

func (r CheckRequest) validate() error {
	if !r.ActionType.Valid() {
		return fmt.Errorf("%w: unknown action type %q", ErrValidation, r.ActionType)
	}
	if !r.RiskLevel.Valid() {
		return fmt.Errorf("%w: unknown risk level %q", ErrValidation, r.RiskLevel)
	}
	if !r.ActorKind.Valid() {
		return fmt.Errorf("%w: unknown actor kind %q", ErrValidation, r.ActorKind)
	}
	if r.ActorID == "" {
		return fmt.Errorf("%w: actor_id required", ErrValidation)
	}
	return nil
}

// CheckResult is returned to the caller for every evaluated request.
type CheckResult struct {
	CorrelationID  string         `json:"correlation_id"`
	Verdict        Verdict        `json:"verdict"`
	Reasons        []string       `json:"reasons,omitempty"`
	RulesEvaluated []string       `json:"rules_evaluated,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Allowed reports whether the guarded operation may proceed right now.
func (r CheckResult) Allowed() bool {
	return r.Verdict == VerdictAllow
}

// NewCorrelationID returns a globally unique, human-traceable identifier:
// a UTC timestamp prefix for log scanning plus a random suffix for
// uniqueness. It threads one decision through the audit store, the caller's
// response and the review UI.
func NewCorrelationID(now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("chk-%s-%s", now.UTC().Format("20060102T150405"), suffix)
}
