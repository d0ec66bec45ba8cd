package check

import (
	"context"
	"errors"
	"testing"
)

func TestGuard_AllowInvokesOperation(t *testing.T) {
	store := NewMemoryStore()
	eng := NewEngine(store, stubEvaluator(VerdictAllow, nil, []string{"rule-1"}))

	invoked := false
	op := Guard(eng, ActionWalletPayout, RiskP2, GuardOptions{}, func(ctx context.Context, args map[string]any) (any, error) {
		invoked = true
		return "done", nil
	})

	out, err := op(context.Background(), map[string]any{"amount_minor": int64(100)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !invoked {
		t.Fatalf("expected operation to run")
	}
	if out != "done" {
		t.Fatalf("expected result passed through, got %v", out)
	}
}

func TestGuard_DenyShortCircuits(t *testing.T) {
	store := NewMemoryStore()
	eng := NewEngine(store, stubEvaluator(VerdictDeny, []string{"blocked"}, []string{"rule-1"}))

	op := Guard(eng, ActionWalletPayout, RiskP1, GuardOptions{}, func(ctx context.Context, args map[string]any) (any, error) {
		t.Fatalf("operation must not run on DENY")
		return nil, nil
	})

	_, err := op(context.Background(), nil)
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected DeniedError, got %v", err)
	}
	if denied.CorrelationID == "" {
		t.Fatalf("expected correlation id in rejection")
	}
	if len(denied.Reasons) != 1 || denied.Reasons[0] != "blocked" {
		t.Fatalf("expected reasons in rejection, got %v", denied.Reasons)
	}
}

func TestGuard_RequireHumanSuspends(t *testing.T) {
	store := NewMemoryStore()
	eng := NewEngine(store, stubEvaluator(VerdictRequireHuman, []string{"review"}, nil))

	op := Guard(eng, ActionSchemaMigration, RiskP0, GuardOptions{}, func(ctx context.Context, args map[string]any) (any, error) {
		t.Fatalf("operation must not run while pending")
		return nil, nil
	})

	_, err := op(context.Background(), nil)
	var pending *PendingError
	if !errors.As(err, &pending) {
		t.Fatalf("expected PendingError, got %v", err)
	}
	if pending.CorrelationID == "" {
		t.Fatalf("expected correlation id in pending signal")
	}

	entries, _ := store.ListPending(context.Background(), 10)
	if len(entries) != 1 {
		t.Fatalf("expected the suspended action in the pending queue")
	}
}

func TestGuard_FailsClosedOnEvaluatorFailure(t *testing.T) {
	store := NewMemoryStore()
	eng := NewEngine(store, failingEvaluator(errors.New("rules down")))

	op := Guard(eng, ActionWalletPayout, RiskP1, GuardOptions{}, func(ctx context.Context, args map[string]any) (any, error) {
		t.Fatalf("operation must not run when evaluation fails")
		return nil, nil
	})

	_, err := op(context.Background(), nil)
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected DeniedError, got %v", err)
	}
	// Nothing was evaluated, nothing was logged.
	if entries, _ := store.ListPending(context.Background(), 10); len(entries) != 0 {
		t.Fatalf("expected no audit entries after evaluator failure")
	}
}

func TestGuard_DefaultActorIsSystem(t *testing.T) {
	store := NewMemoryStore()
	var seen CheckRequest
	eng := NewEngine(store, RuleEvaluatorFunc(func(ctx context.Context, req CheckRequest) (Verdict, []string, []string, error) {
		seen = req
		return VerdictAllow, nil, nil, nil
	}))

	op := Guard(eng, ActionBulkDelete, RiskP2, GuardOptions{}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	})
	if _, err := op(context.Background(), map[string]any{"table": "users"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if seen.ActorKind != ActorSystem || seen.ActorID != "system" {
		t.Fatalf("expected system actor default, got %s/%s", seen.ActorKind, seen.ActorID)
	}
	if seen.Payload["table"] != "users" {
		t.Fatalf("expected default payload snapshot of args")
	}
}

func TestGuard_UsesContextIdentity(t *testing.T) {
	store := NewMemoryStore()
	var seen CheckRequest
	eng := NewEngine(store, RuleEvaluatorFunc(func(ctx context.Context, req CheckRequest) (Verdict, []string, []string, error) {
		seen = req
		return VerdictAllow, nil, nil, nil
	}))

	op := Guard(eng, ActionWalletPayout, RiskP1, GuardOptions{}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	})
	ctx := WithIdentity(context.Background(), "alice")
	if _, err := op(ctx, nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if seen.ActorKind != ActorHuman || seen.ActorID != "alice" {
		t.Fatalf("expected human actor from context, got %s/%s", seen.ActorKind, seen.ActorID)
	}
}

func TestGuard_ExtractorOverrides(t *testing.T) {
	store := NewMemoryStore()
	var seen CheckRequest
	eng := NewEngine(store, RuleEvaluatorFunc(func(ctx context.Context, req CheckRequest) (Verdict, []string, []string, error) {
		seen = req
		return VerdictAllow, nil, nil, nil
	}))

	op := Guard(eng, ActionWalletPayout, RiskP1, GuardOptions{
		TargetExtractor: func(ctx context.Context, args map[string]any) map[string]any {
			return map[string]any{"wallet_id": args["wallet"]}
		},
		PayloadExtractor: func(ctx context.Context, args map[string]any) map[string]any {
			// Inject actor context used by money-movement rules.
			return map[string]any{"amount_minor": args["amount_minor"], "balance_minor": int64(900)}
		},
		Metadata: map[string]any{"operation": "payout"},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	})

	args := map[string]any{"wallet": "w-9", "amount_minor": int64(100)}
	if _, err := op(context.Background(), args); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if seen.Target["wallet_id"] != "w-9" {
		t.Fatalf("target extractor not applied: %v", seen.Target)
	}
	if seen.Payload["balance_minor"] != int64(900) {
		t.Fatalf("payload extractor not applied: %v", seen.Payload)
	}
	if seen.Metadata["operation"] != "payout" {
		t.Fatalf("metadata not attached: %v", seen.Metadata)
	}
}
