// Package auditlog provides the Postgres-backed audit store.
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"doublecheck/internal/check"
	"doublecheck/pkg/utils"
)

// NOTE: This store assumes the following table exists:
//
//	CREATE TABLE audit_log (
//	  id              TEXT PRIMARY KEY,
//	  correlation_id  TEXT NOT NULL UNIQUE,
//	  action_type     TEXT NOT NULL,
//	  risk_level      TEXT NOT NULL,
//	  actor_kind      TEXT NOT NULL,
//	  actor_id        TEXT NOT NULL,
//	  target          JSONB,
//	  payload         JSONB,
//	  metadata        JSONB,
//	  rules_evaluated JSONB,
//	  verdict         TEXT NOT NULL,
//	  reasons         JSONB,
//	  approval_status TEXT NOT NULL,
//	  approved_by     TEXT NOT NULL DEFAULT '',
//	  rejected_by     TEXT NOT NULL DEFAULT '',
//	  reject_reason   TEXT NOT NULL DEFAULT '',
//	  approval_at     TIMESTAMPTZ,
//	  created_at      TIMESTAMPTZ NOT NULL
//	);
//
// Indexes (performance, not correctness):
//
//	CREATE INDEX audit_log_status_idx  ON audit_log (approval_status);
//	CREATE INDEX audit_log_actor_idx   ON audit_log (actor_id);
//	CREATE INDEX audit_log_rate_idx    ON audit_log (actor_id, action_type, created_at);
//	CREATE INDEX audit_log_created_idx ON audit_log (created_at);
//
// Recommended: an INSERT-only policy plus a trigger restricting UPDATE to
// the approval columns, so the append-only invariant also holds below the
// application layer.

// PostgresStore implements check.Store on Postgres via database/sql with
// the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e check.Entry) error {
	target, err := marshalJSON(e.Target)
	if err != nil {
		return err
	}
	payload, err := marshalJSON(e.Payload)
	if err != nil {
		return err
	}
	metadata, err := marshalJSON(e.Metadata)
	if err != nil {
		return err
	}
	rules, err := marshalJSON(e.RulesEvaluated)
	if err != nil {
		return err
	}
	reasons, err := marshalJSON(e.Reasons)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO audit_log (
  id, correlation_id, action_type, risk_level, actor_kind, actor_id,
  target, payload, metadata, rules_evaluated, verdict, reasons,
  approval_status, approved_by, rejected_by, reject_reason, approval_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)
ON CONFLICT (correlation_id) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.CorrelationID,
		string(e.ActionType),
		string(e.RiskLevel),
		string(e.ActorKind),
		e.ActorID,
		target,
		payload,
		metadata,
		rules,
		string(e.Verdict),
		reasons,
		string(e.ApprovalStatus),
		e.ApprovedBy,
		e.RejectedBy,
		e.RejectReason,
		e.ApprovalAt,
		e.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return check.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (check.Entry, error) {
	const q = selectColumns + `
FROM audit_log
WHERE id = $1
`
	e, err := scanEntry(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return check.Entry{}, check.ErrNotFound
		}
		return check.Entry{}, err
	}
	return e, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]check.Entry, error) {
	const q = selectColumns + `
FROM audit_log
WHERE approval_status = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`
	return s.queryEntries(ctx, q, string(check.ApprovalPending), clampLimit(limit))
}

// UpdateApprovalStatus is the only mutation this store performs. The row is
// locked and re-checked inside one transaction, so a resolved entry can
// never be overwritten: the second writer observes the winner's status and
// matches nothing.
func (s *PostgresStore) UpdateApprovalStatus(ctx context.Context, id string, res check.Resolution) (matched bool, err error) {
	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const lockQ = `
SELECT approval_status
FROM audit_log
WHERE id = $1
FOR UPDATE
`
		var current string
		if err := tx.QueryRowContext(ctx, lockQ, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if current != string(check.ApprovalPending) {
			return nil
		}

		approvedBy, rejectedBy, reason := "", "", ""
		switch res.Status {
		case check.ApprovalApproved:
			approvedBy = res.ActorID
		case check.ApprovalRejected:
			rejectedBy = res.ActorID
			reason = res.Reason
		}

		const updQ = `
UPDATE audit_log
SET approval_status = $1,
    approved_by     = $2,
    rejected_by     = $3,
    reject_reason   = $4,
    approval_at     = $5
WHERE id = $6
`
		if _, err := tx.ExecContext(ctx, updQ,
			string(res.Status),
			approvedBy,
			rejectedBy,
			reason,
			res.At,
			id,
		); err != nil {
			return err
		}
		matched = true
		return nil
	})
	return matched, err
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID string, actionType check.ActionType, limit int) ([]check.Entry, error) {
	if actionType == "" {
		const q = selectColumns + `
FROM audit_log
WHERE actor_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`
		return s.queryEntries(ctx, q, actorID, clampLimit(limit))
	}
	const q = selectColumns + `
FROM audit_log
WHERE actor_id = $1 AND action_type = $2
ORDER BY created_at DESC, id DESC
LIMIT $3
`
	return s.queryEntries(ctx, q, actorID, string(actionType), clampLimit(limit))
}

func (s *PostgresStore) CountRecent(ctx context.Context, actorID string, actionType check.ActionType, window time.Duration) (int, error) {
	const q = `
SELECT COUNT(*)
FROM audit_log
WHERE actor_id = $1 AND action_type = $2 AND created_at > $3
`
	cutoff := time.Now().UTC().Add(-window)
	var n int
	if err := s.db.QueryRowContext(ctx, q, actorID, string(actionType), cutoff).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

const selectColumns = `
SELECT id, correlation_id, action_type, risk_level, actor_kind, actor_id,
       target, payload, metadata, rules_evaluated, verdict, reasons,
       approval_status, approved_by, rejected_by, reject_reason, approval_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (check.Entry, error) {
	var (
		e       check.Entry
		target  []byte
		payload []byte
		meta    []byte
		rules   []byte
		reasons []byte
		appAt   sql.NullTime
	)
	if err := row.Scan(
		&e.ID,
		&e.CorrelationID,
		&e.ActionType,
		&e.RiskLevel,
		&e.ActorKind,
		&e.ActorID,
		&target,
		&payload,
		&meta,
		&rules,
		&e.Verdict,
		&reasons,
		&e.ApprovalStatus,
		&e.ApprovedBy,
		&e.RejectedBy,
		&e.RejectReason,
		&appAt,
		&e.CreatedAt,
	); err != nil {
		return check.Entry{}, err
	}
	if appAt.Valid {
		t := appAt.Time
		e.ApprovalAt = &t
	}
	if err := unmarshalJSON(target, &e.Target); err != nil {
		return check.Entry{}, err
	}
	if err := unmarshalJSON(payload, &e.Payload); err != nil {
		return check.Entry{}, err
	}
	if err := unmarshalJSON(meta, &e.Metadata); err != nil {
		return check.Entry{}, err
	}
	if err := unmarshalJSON(rules, &e.RulesEvaluated); err != nil {
		return check.Entry{}, err
	}
	if err := unmarshalJSON(reasons, &e.Reasons); err != nil {
		return check.Entry{}, err
	}
	return e, nil
}

func (s *PostgresStore) queryEntries(ctx context.Context, q string, args ...any) ([]check.Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []check.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	const def, max = 50, 500
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("auditlog: marshal: %w", err)
	}
	return b, nil
}

func unmarshalJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("auditlog: unmarshal: %w", err)
	}
	return nil
}
