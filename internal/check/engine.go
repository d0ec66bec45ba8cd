package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RuleEvaluator is the external rule-evaluation capability.
//
// Given a request it returns a verdict, human-readable reasons and the
// identifiers of the rules that were evaluated, synchronously. The engine
// treats it as a pure function of its input for the duration of one call:
// no retry, no caching. An implementation may evaluate independent rules
// concurrently; that is opaque here.
//
// A concrete catalogue lives in internal/rules. Any rule set (thresholds,
// velocity checks, allow/deny lists) can implement this interface without
// the engine knowing.
type RuleEvaluator interface {
	EvaluateRules(ctx context.Context, req CheckRequest) (Verdict, []string, []string, error)
}

// RuleEvaluatorFunc adapts a plain function to RuleEvaluator.
type RuleEvaluatorFunc func(ctx context.Context, req CheckRequest) (Verdict, []string, []string, error)

func (f RuleEvaluatorFunc) EvaluateRules(ctx context.Context, req CheckRequest) (Verdict, []string, []string, error) {
	return f(ctx, req)
}

// Engine orchestrates one double-check: assemble the request, evaluate
// rules, derive the initial approval state, write exactly one audit entry,
// return the result.
//
// Side-effect contract:
// - Exactly one Store.Append per successful call.
// - If the evaluator fails, nothing is written; the typed error propagates
//   and the caller must fail closed.
// - The engine never defaults to ALLOW on failure.
//
// The engine is stateless between calls; it may be shared across goroutines.
type Engine struct {
	store     Store
	evaluator RuleEvaluator
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewEngine(store Store, evaluator RuleEvaluator) *Engine {
	return &Engine{store: store, evaluator: evaluator, clock: time.Now}
}

// Evaluate runs the full decision path for one request.
func (e *Engine) Evaluate(ctx context.Context, req CheckRequest) (CheckResult, error) {
	if e.store == nil {
		return CheckResult{}, fmt.Errorf("%w: store not configured", ErrStoreUnavailable)
	}
	if e.evaluator == nil {
		return CheckResult{}, fmt.Errorf("%w: evaluator not configured", ErrEvaluatorFailure)
	}
	if err := req.validate(); err != nil {
		return CheckResult{}, err
	}

	now := e.clock().UTC()
	corrID := NewCorrelationID(now)

	verdict, reasons, rules, err := e.evaluator.EvaluateRules(ctx, req)
	if err != nil {
		return CheckResult{}, fmt.Errorf("%w: %v", ErrEvaluatorFailure, err)
	}
	switch verdict {
	case VerdictAllow, VerdictDeny, VerdictRequireHuman:
	default:
		return CheckResult{}, fmt.Errorf("%w: unknown verdict %q", ErrEvaluatorFailure, verdict)
	}

	status := InitialApprovalStatus(verdict)
	entry := Entry{
		ID:             uuid.NewString(),
		CorrelationID:  corrID,
		ActionType:     req.ActionType,
		RiskLevel:      req.RiskLevel,
		ActorKind:      req.ActorKind,
		ActorID:        req.ActorID,
		Target:         req.Target,
		Payload:        req.Payload,
		Metadata:       req.Metadata,
		RulesEvaluated: rules,
		Verdict:        verdict,
		Reasons:        reasons,
		ApprovalStatus: status,
		CreatedAt:      now,
	}
	if err := e.store.Append(ctx, entry); err != nil {
		if errors.Is(err, ErrConflict) {
			return CheckResult{}, err
		}
		return CheckResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return CheckResult{
		CorrelationID:  corrID,
		Verdict:        verdict,
		Reasons:        reasons,
		RulesEvaluated: rules,
		ApprovalStatus: status,
		Timestamp:      now,
	}, nil
}
