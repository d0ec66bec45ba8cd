// Package approval resolves entries suspended for human review.
//
// Approving an entry only flips the gate; it does not re-execute the
// originally attempted operation. The original caller is expected to
// resubmit, and rejection is terminal: a rejected action re-enters through
// a fresh evaluation or not at all.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doublecheck/internal/check"
)

var ErrInvalidArgument = errors.New("approval: invalid argument")

// Workflow performs the PENDING_FOUNDER -> APPROVED/REJECTED transitions.
//
// Concurrency: two reviewers racing for the same entry get exactly one
// success; the loser observes *check.InvalidStateError or a failed
// conditional match. The store's compare-and-swap enforces this; the
// pre-read below only exists to produce a precise error for the UI.
type Workflow struct {
	store check.Store
	clock func() time.Time
}

func NewWorkflow(store check.Store) *Workflow {
	return &Workflow{store: store, clock: time.Now}
}

// Approve resolves a pending entry in favor of the action.
func (w *Workflow) Approve(ctx context.Context, entryID, approverID string) (check.Entry, error) {
	return w.resolve(ctx, entryID, check.Resolution{
		Status:  check.ApprovalApproved,
		ActorID: approverID,
	})
}

// Reject resolves a pending entry against the action. Reason is optional.
func (w *Workflow) Reject(ctx context.Context, entryID, rejecterID, reason string) (check.Entry, error) {
	return w.resolve(ctx, entryID, check.Resolution{
		Status:  check.ApprovalRejected,
		ActorID: rejecterID,
		Reason:  reason,
	})
}

func (w *Workflow) resolve(ctx context.Context, entryID string, res check.Resolution) (check.Entry, error) {
	if entryID == "" || res.ActorID == "" {
		return check.Entry{}, ErrInvalidArgument
	}

	e, err := w.store.Get(ctx, entryID)
	if err != nil {
		return check.Entry{}, err
	}
	if e.ApprovalStatus != check.ApprovalPending {
		return check.Entry{}, &check.InvalidStateError{EntryID: entryID, Current: e.ApprovalStatus}
	}

	res.At = w.clock().UTC()
	ok, err := w.store.UpdateApprovalStatus(ctx, entryID, res)
	if err != nil {
		return check.Entry{}, fmt.Errorf("%w: %v", check.ErrStoreUnavailable, err)
	}
	if !ok {
		// Lost the race: re-read so the error names the winning status.
		cur, rerr := w.store.Get(ctx, entryID)
		if rerr != nil {
			return check.Entry{}, rerr
		}
		return check.Entry{}, &check.InvalidStateError{EntryID: entryID, Current: cur.ApprovalStatus}
	}

	return w.store.Get(ctx, entryID)
}
