package rules

import (
	"context"
	"fmt"
	"time"

	"doublecheck/internal/check"
	"doublecheck/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Velocity suspends an actor's requests for review once their rate for one
// action type exceeds Limit within Window. The counter lives in Redis so
// the check stays cheap on the hot path; the audit store's CountRecent
// remains the authoritative number for operator queries.
//
// The increment is atomic (Lua), so concurrent requests cannot both slip
// under the limit.
type Velocity struct {
	Redis  *redis.Client
	Limit  int
	Window time.Duration
}

func (Velocity) ID() string { return "velocity" }

func (r Velocity) Evaluate(ctx context.Context, req check.CheckRequest) (check.Verdict, string, error) {
	if r.Redis == nil {
		return "", "", fmt.Errorf("redis client not configured")
	}
	if r.Limit <= 0 || r.Window <= 0 {
		return "", "", fmt.Errorf("limit and window must be positive")
	}

	key := fmt.Sprintf("dc:velocity:%s:%s", req.ActorID, req.ActionType)
	count, err := utils.IncrWindowCounter(ctx, r.Redis, key, r.Window)
	if err != nil {
		return "", "", err
	}
	if count > int64(r.Limit) {
		return check.VerdictRequireHuman,
			fmt.Sprintf("%d %s actions within %s exceeds limit %d", count, req.ActionType, r.Window, r.Limit),
			nil
	}
	return check.VerdictAllow, "", nil
}
