package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "adjudicator/pkg/domain"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/platform/sentinel"
	"adjudicator/pkg/platform/sqlerr"
	txcontext "adjudicator/pkg/platform/tx"
)

// Store implements audit.Store on an INSERT-only table. The primary key
// (refund_id, seq) plus a predecessor check make gaps and overwrites impossible;
// the application role is expected to hold no UPDATE or DELETE grant on it.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL trail store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts the record when its predecessor exists (or it is the first).
func (s *Store) Append(ctx context.Context, record audit.Record) error {
	inputs, err := json.Marshal(record.Inputs)
	if err != nil {
		return fmt.Errorf("marshal audit inputs: %w", err)
	}

	query := `
		INSERT INTO refund_audit (
			refund_id, seq, recorded_at, actor, action, category,
			from_state, to_state, inputs, rationale, request_id
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		WHERE $2 = 1 OR EXISTS (
			SELECT 1 FROM refund_audit WHERE refund_id = $1 AND seq = $2 - 1
		)
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.RefundID),
		record.Seq,
		record.Timestamp,
		record.Actor,
		string(record.Action),
		string(record.Category),
		record.From,
		record.To,
		inputs,
		record.Rationale,
		record.RequestID,
	)
	if err != nil {
		if sqlerr.IsUniqueViolation(err) {
			return fmt.Errorf("audit seq %d already recorded: %w", record.Seq, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert audit record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("audit rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("audit seq %d has no predecessor: %w", record.Seq, sentinel.ErrConflict)
	}
	return nil
}

// ListByRefund returns the trail in sequence order.
func (s *Store) ListByRefund(ctx context.Context, refundID id.RefundID) ([]audit.Record, error) {
	query := `
		SELECT seq, recorded_at, actor, action, category,
			   from_state, to_state, inputs, rationale, request_id
		FROM refund_audit
		WHERE refund_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(refundID))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		var (
			r        audit.Record
			action   string
			category string
			inputs   []byte
		)
		if err := rows.Scan(&r.Seq, &r.Timestamp, &r.Actor, &action, &category,
			&r.From, &r.To, &inputs, &r.Rationale, &r.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if len(inputs) > 0 {
			if err := json.Unmarshal(inputs, &r.Inputs); err != nil {
				return nil, fmt.Errorf("unmarshal audit inputs: %w", err)
			}
		}
		r.RefundID = refundID
		r.Action = audit.Action(action)
		r.Category = audit.Category(category)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
