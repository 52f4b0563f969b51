package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
	"adjudicator/pkg/platform/sqlerr"
	txcontext "adjudicator/pkg/platform/tx"
)

// PostgresStore keeps the aggregate as a JSONB document alongside the columns
// the pipeline and monitor query on.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func assigneeArg(r id.ReviewerID) any {
	if r.IsNil() {
		return nil
	}
	return uuid.UUID(r)
}

func (s *PostgresStore) Create(ctx context.Context, req *models.RefundRequest) error {
	doc, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal refund: %w", err)
	}
	query := `
		INSERT INTO refund_requests (
			id, stakeholder_id, transaction_id, state, version,
			assignee, submitted_at, updated_at, document
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.StakeholderID),
		string(req.TransactionID),
		string(req.State),
		req.Version,
		assigneeArg(req.Assignee),
		req.SubmittedAt,
		req.LastActivityAt,
		doc,
	)
	if err != nil {
		if sqlerr.IsUniqueViolation(err) {
			return fmt.Errorf("refund %s exists: %w", req.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	var doc []byte
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT document FROM refund_requests WHERE id = $1`,
		uuid.UUID(refundID),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refund %s: %w", refundID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select refund: %w", err)
	}
	return decode(doc)
}

// Update writes req when the stored version still equals expectedVersion.
func (s *PostgresStore) Update(ctx context.Context, req *models.RefundRequest, expectedVersion int) error {
	doc, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal refund: %w", err)
	}
	query := `
		UPDATE refund_requests
		SET state = $2, version = $3, assignee = $4, updated_at = $5, document = $6
		WHERE id = $1 AND version = $7
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		string(req.State),
		req.Version,
		assigneeArg(req.Assignee),
		req.LastActivityAt,
		doc,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update refund rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM refund_requests WHERE id = $1)`,
		uuid.UUID(req.ID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check refund exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("refund %s: %w", req.ID, sentinel.ErrNotFound)
	}
	return fmt.Errorf("refund %s not at version %d: %w", req.ID, expectedVersion, sentinel.ErrConflict)
}

func (s *PostgresStore) FindPriorOpen(ctx context.Context, req *models.RefundRequest) (*models.RefundRequest, error) {
	var doc []byte
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT document FROM refund_requests
		WHERE transaction_id = $1
		  AND state <> ALL($4)
		  AND (submitted_at < $3 OR (submitted_at = $3 AND id < $2))
		ORDER BY submitted_at ASC, id ASC
		LIMIT 1
	`,
		string(req.TransactionID),
		uuid.UUID(req.ID),
		req.SubmittedAt.Truncate(time.Microsecond),
		pq.Array(closedStates()),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open refund for %s: %w", req.TransactionID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select open refund: %w", err)
	}
	return decode(doc)
}

func (s *PostgresStore) ListNonTerminal(ctx context.Context) ([]*models.RefundRequest, error) {
	states := make([]string, 0)
	for _, st := range models.NonTerminalStates() {
		states = append(states, string(st))
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT document FROM refund_requests
		WHERE state = ANY($1)
		ORDER BY submitted_at ASC
	`, pq.Array(states))
	if err != nil {
		return nil, fmt.Errorf("query open refunds: %w", err)
	}
	defer rows.Close()

	out := make([]*models.RefundRequest, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan refund: %w", err)
		}
		req, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refunds: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AssigneeLoad(ctx context.Context, reviewers []id.ReviewerID) (map[id.ReviewerID]int, error) {
	load := make(map[id.ReviewerID]int, len(reviewers))
	ids := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		load[r] = 0
		ids = append(ids, r.String())
	}
	if len(ids) == 0 {
		return load, nil
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT assignee, COUNT(*) FROM refund_requests
		WHERE state = $1 AND assignee = ANY($2::uuid[])
		GROUP BY assignee
	`, string(models.StateL2Review), pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query assignee load: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			assignee uuid.UUID
			count    int
		)
		if err := rows.Scan(&assignee, &count); err != nil {
			return nil, fmt.Errorf("scan assignee load: %w", err)
		}
		load[id.ReviewerID(assignee)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignee load: %w", err)
	}
	return load, nil
}

// closedStates are the states that no longer block a new request for the
// same transaction.
func closedStates() []string {
	out := make([]string, 0)
	for _, s := range []models.State{
		models.StateRejected, models.StateL1AutoReject, models.StateExpired,
		models.StateWithdrawn, models.StateWithdrawnByStakeholder,
	} {
		if !blocksDuplicate(s) {
			out = append(out, string(s))
		}
	}
	return out
}

func decode(doc []byte) (*models.RefundRequest, error) {
	var req models.RefundRequest
	if err := json.Unmarshal(doc, &req); err != nil {
		return nil, fmt.Errorf("unmarshal refund: %w", err)
	}
	return &req, nil
}
