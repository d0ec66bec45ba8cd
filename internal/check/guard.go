package check

import (
	"context"
)

// Protected is the shape of an operation placed behind a guard.
type Protected func(ctx context.Context, args map[string]any) (any, error)

// GuardOptions are optional extractor overrides. Each defaults to the
// behavior described on Guard; inject only what the call site needs
// (e.g. a payload extractor that adds the actor's current balance for
// money-movement rules).
type GuardOptions struct {
	// ActorResolver derives the acting identity. Default: the identity in
	// ctx if present, else actor id "system" with kind "system".
	ActorResolver func(ctx context.Context, args map[string]any) (ActorKind, string)

	// TargetExtractor derives the target descriptor. Default: empty map.
	TargetExtractor func(ctx context.Context, args map[string]any) map[string]any

	// PayloadExtractor derives the payload snapshot. Default: a shallow
	// copy of args.
	PayloadExtractor func(ctx context.Context, args map[string]any) map[string]any

	// Metadata is attached verbatim to every request this guard produces
	// (e.g. the originating operation name).
	Metadata map[string]any
}

// Guard wraps a protected operation with an evaluate-then-proceed step.
//
// On ALLOW the wrapped operation runs and its result is returned unchanged.
// On DENY the call aborts with *DeniedError; f is never invoked.
// On REQUIRE_HUMAN the call aborts with *PendingError; f is never invoked
// and no partial side effect from f can occur.
//
// Fail closed: any engine error (evaluator failure, store failure) also
// aborts without invoking f. Letting an action through because the check
// pipeline itself broke would defeat the gateway.
//
// The returned function is safe for concurrent use and works for both
// externally reachable operations and background jobs (actor kind "system").
func Guard(engine *Engine, actionType ActionType, riskLevel RiskLevel, opts GuardOptions, f Protected) Protected {
	return func(ctx context.Context, args map[string]any) (any, error) {
		kind, actorID := ActorSystem, "system"
		if opts.ActorResolver != nil {
			kind, actorID = opts.ActorResolver(ctx, args)
		} else if id, ok := IdentityFromContext(ctx); ok {
			kind, actorID = ActorHuman, id
		}

		target := map[string]any{}
		if opts.TargetExtractor != nil {
			target = opts.TargetExtractor(ctx, args)
		}

		var payload map[string]any
		if opts.PayloadExtractor != nil {
			payload = opts.PayloadExtractor(ctx, args)
		} else {
			payload = make(map[string]any, len(args))
			for k, v := range args {
				payload[k] = v
			}
		}

		res, err := engine.Evaluate(ctx, CheckRequest{
			ActionType: actionType,
			RiskLevel:  riskLevel,
			ActorKind:  kind,
			ActorID:    actorID,
			Target:     target,
			Payload:    payload,
			Metadata:   opts.Metadata,
		})
		if err != nil {
			// Correlation id is unknown here: nothing was logged.
			return nil, &DeniedError{Reasons: []string{"double-check unavailable"}}
		}

		switch res.Verdict {
		case VerdictAllow:
			return f(ctx, args)
		case VerdictRequireHuman:
			return nil, &PendingError{CorrelationID: res.CorrelationID}
		default:
			return nil, &DeniedError{CorrelationID: res.CorrelationID, Reasons: res.Reasons}
		}
	}
}

type identityKey struct{}

// WithIdentity stores the caller identity used by the default actor
// resolver. The HTTP layer sets this from verified token claims.
func WithIdentity(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, identityKey{}, actorID)
}

// IdentityFromContext returns the caller identity if one was set.
func IdentityFromContext(ctx context.Context) (string, bool) {
	if v := ctx.Value(identityKey{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
