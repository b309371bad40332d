package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
)

type PgxPendingLinkRepository struct {
	BaseRepository
}

// NewPgxPendingLinkRepository creates a new repository for the admission link
// retry queue.
func NewPgxPendingLinkRepository(pool *pgxpool.Pool) portsrepo.PendingLinkQueue {
	return &PgxPendingLinkRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.PendingLinkQueue = (*PgxPendingLinkRepository)(nil)

// Enqueue records a failed linking attempt. A student has at most one queue
// entry; re-enqueueing refreshes the stored error.
func (r *PgxPendingLinkRepository) Enqueue(ctx context.Context, link domain.PendingLink) error {
	query := `
		INSERT INTO pending_links (student_id, admission_fee, monthly_fee, initial_paid, method, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id)
		DO UPDATE SET admission_fee = EXCLUDED.admission_fee, monthly_fee = EXCLUDED.monthly_fee,
		              initial_paid = EXCLUDED.initial_paid, method = EXCLUDED.method,
		              last_error = EXCLUDED.last_error;
	`
	_, err := r.Pool.Exec(ctx, query,
		link.StudentID,
		link.AdmissionFee,
		link.MonthlyFee,
		link.InitialPaid,
		link.Method,
		link.Attempts,
		link.LastError,
		link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue pending link for student %s: %w", link.StudentID, err)
	}
	return nil
}

// List retrieves queued links, oldest first.
func (r *PgxPendingLinkRepository) List(ctx context.Context, limit int) ([]domain.PendingLink, error) {
	query := `
		SELECT student_id, admission_fee, monthly_fee, initial_paid, method, attempts, last_error, created_at
		FROM pending_links
		ORDER BY created_at
		LIMIT $1;
	`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending links: %w", err)
	}
	defer rows.Close()

	links := []domain.PendingLink{}
	for rows.Next() {
		var link domain.PendingLink
		if err := rows.Scan(
			&link.StudentID,
			&link.AdmissionFee,
			&link.MonthlyFee,
			&link.InitialPaid,
			&link.Method,
			&link.Attempts,
			&link.LastError,
			&link.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending link row: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending link rows: %w", err)
	}

	return links, nil
}

// Remove drops a queue entry after a successful retry.
func (r *PgxPendingLinkRepository) Remove(ctx context.Context, studentID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM pending_links WHERE student_id = $1;`, studentID)
	if err != nil {
		return fmt.Errorf("failed to remove pending link for student %s: %w", studentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RecordAttempt bumps the attempt counter and stores the latest error.
func (r *PgxPendingLinkRepository) RecordAttempt(ctx context.Context, studentID string, lastError string) error {
	query := `UPDATE pending_links SET attempts = attempts + 1, last_error = $2 WHERE student_id = $1;`
	tag, err := r.Pool.Exec(ctx, query, studentID, lastError)
	if err != nil {
		return fmt.Errorf("failed to record link attempt for student %s: %w", studentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
