// Package rules ships a reference rule catalogue behind the engine's
// RuleEvaluator contract. Deployments with their own catalogue implement
// check.RuleEvaluator directly and ignore this package.
package rules

import (
	"context"
	"errors"
	"fmt"

	"doublecheck/internal/check"
)

// Rule is one independent check. It returns its verdict for the request and
// a human-readable reason when the verdict is not ALLOW.
type Rule interface {
	ID() string
	Evaluate(ctx context.Context, req check.CheckRequest) (check.Verdict, string, error)
}

// Chain evaluates every rule and merges verdicts by severity:
// DENY > REQUIRE_HUMAN > ALLOW. All rules run even after a DENY so the
// audit entry records the complete picture.
//
// Any rule error aborts the whole evaluation. The engine treats that as an
// evaluator failure and nothing is logged; the guard fails closed.
type Chain struct {
	rules []Rule
}

func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: rules}
}

func (c *Chain) EvaluateRules(ctx context.Context, req check.CheckRequest) (check.Verdict, []string, []string, error) {
	if len(c.rules) == 0 {
		return "", nil, nil, errors.New("rules: empty chain")
	}

	verdict := check.VerdictAllow
	var reasons []string
	evaluated := make([]string, 0, len(c.rules))

	for _, r := range c.rules {
		v, reason, err := r.Evaluate(ctx, req)
		if err != nil {
			return "", nil, nil, fmt.Errorf("rules: %s: %w", r.ID(), err)
		}
		evaluated = append(evaluated, r.ID())

		switch v {
		case check.VerdictAllow:
			continue
		case check.VerdictDeny:
			verdict = check.VerdictDeny
		case check.VerdictRequireHuman:
			if verdict != check.VerdictDeny {
				verdict = check.VerdictRequireHuman
			}
		default:
			return "", nil, nil, fmt.Errorf("rules: %s returned unknown verdict %q", r.ID(), v)
		}
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	return verdict, reasons, evaluated, nil
}
