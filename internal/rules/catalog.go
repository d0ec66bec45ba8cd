package rules

import (
	"context"
	"fmt"

	"doublecheck/internal/check"
)

// RiskEscalation forces human review of P0 requests regardless of other
// rules, and of P1 requests performed by non-interactive actors.
type RiskEscalation struct{}

func (RiskEscalation) ID() string { return "risk_escalation" }

func (RiskEscalation) Evaluate(ctx context.Context, req check.CheckRequest) (check.Verdict, string, error) {
	if req.RiskLevel == check.RiskP0 {
		return check.VerdictRequireHuman, "P0 actions always require review", nil
	}
	if req.RiskLevel == check.RiskP1 && req.ActorKind == check.ActorSystem {
		return check.VerdictRequireHuman, "P1 actions by system actors require review", nil
	}
	return check.VerdictAllow, "", nil
}

// AmountThreshold gates money movement by payload amount (minor units).
// Amounts above DenyMinor are denied outright; above ReviewMinor they are
// suspended for review. Requests without an amount pass this rule.
type AmountThreshold struct {
	// Field is the payload key holding the amount. Default "amount_minor".
	Field       string
	ReviewMinor int64
	DenyMinor   int64
}

func (AmountThreshold) ID() string { return "amount_threshold" }

func (r AmountThreshold) Evaluate(ctx context.Context, req check.CheckRequest) (check.Verdict, string, error) {
	field := r.Field
	if field == "" {
		field = "amount_minor"
	}
	raw, ok := req.Payload[field]
	if !ok {
		return check.VerdictAllow, "", nil
	}
	amount, ok := asInt64(raw)
	if !ok {
		return "", "", fmt.Errorf("payload field %q is not numeric", field)
	}
	if r.DenyMinor > 0 && amount > r.DenyMinor {
		return check.VerdictDeny, fmt.Sprintf("amount %d exceeds hard limit %d", amount, r.DenyMinor), nil
	}
	if r.ReviewMinor > 0 && amount > r.ReviewMinor {
		return check.VerdictRequireHuman, fmt.Sprintf("amount %d exceeds review threshold %d", amount, r.ReviewMinor), nil
	}
	return check.VerdictAllow, "", nil
}

// ActorDenyList denies requests from blocked actor ids.
type ActorDenyList struct {
	Blocked map[string]struct{}
}

func NewActorDenyList(ids ...string) ActorDenyList {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return ActorDenyList{Blocked: m}
}

func (ActorDenyList) ID() string { return "actor_deny_list" }

func (r ActorDenyList) Evaluate(ctx context.Context, req check.CheckRequest) (check.Verdict, string, error) {
	if _, blocked := r.Blocked[req.ActorID]; blocked {
		return check.VerdictDeny, "actor is blocked", nil
	}
	return check.VerdictAllow, "", nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		// JSON numbers decode as float64.
		return int64(n), true
	default:
		return 0, false
	}
}
