package check

import (
	"errors"
	"fmt"
)

// Error taxonomy for the gateway. Callers branch with errors.Is; the HTTP
// layer maps these to status codes.
var (
	// ErrValidation marks a malformed request, rejected before any audit
	// entry is written.
	ErrValidation = errors.New("check: invalid request")

	// ErrNotFound is returned when an entry id does not exist.
	ErrNotFound = errors.New("check: entry not found")

	// ErrConflict is returned on a duplicate correlation id. Correlation ids
	// are generated per evaluation, so a collision indicates an upstream bug.
	ErrConflict = errors.New("check: duplicate correlation id")

	// ErrStoreUnavailable marks an infrastructure failure reaching the audit
	// store. Never swallowed; surfaced as a 5xx-equivalent.
	ErrStoreUnavailable = errors.New("check: audit store unavailable")

	// ErrEvaluatorFailure marks a rule evaluator error. No audit entry is
	// written in this case and the guard treats it as DENY.
	ErrEvaluatorFailure = errors.New("check: rule evaluator failed")
)

// InvalidStateError is returned when an approval transition is attempted on
// an entry that is not pending. It carries the current status so a review UI
// can explain "already handled".
type InvalidStateError struct {
	EntryID string
	Current ApprovalStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("check: entry %s is %s, not %s", e.EntryID, e.Current, ApprovalPending)
}

// DeniedError is the structured rejection the guard returns when a protected
// operation is blocked. The wrapped operation was never invoked.
type DeniedError struct {
	CorrelationID string
	Reasons       []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("check: action denied (correlation_id=%s)", e.CorrelationID)
}

// PendingError signals that the action was suspended for human review. The
// caller should resubmit once a reviewer approves; reasons are intentionally
// not echoed to non-reviewers.
type PendingError struct {
	CorrelationID string
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("check: action awaiting approval, retry later (correlation_id=%s)", e.CorrelationID)
}
