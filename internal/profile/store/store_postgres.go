package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"idvgate/internal/verification/models"
	"idvgate/pkg/platform/sentinel"
	txcontext "idvgate/pkg/platform/tx"
)

// PostgresStore persists profile records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const mergeQuery = `
	INSERT INTO subject_verifications (subject_id, status, last_check_at, check_count, reference_url, updated_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (subject_id) DO UPDATE SET
		status        = EXCLUDED.status,
		reference_url = EXCLUDED.reference_url,
		check_count   = GREATEST(subject_verifications.check_count, EXCLUDED.check_count),
		last_check_at = CASE
			WHEN subject_verifications.last_check_at IS NULL THEN EXCLUDED.last_check_at
			WHEN EXCLUDED.last_check_at IS NULL THEN subject_verifications.last_check_at
			ELSE GREATEST(subject_verifications.last_check_at, EXCLUDED.last_check_at)
		END,
		updated_at    = now()
	RETURNING status, last_check_at, check_count, reference_url
`

// MergeVerification upserts the subject's record in a single statement so
// concurrent writers cannot lower check_count or last_check_at.
func (s *PostgresStore) MergeVerification(ctx context.Context, subjectID string, update models.VerificationRecord) (*models.VerificationRecord, error) {
	var lastCheck sql.NullTime
	if update.LastCheckAt != nil {
		lastCheck = sql.NullTime{Time: *update.LastCheckAt, Valid: true}
	}

	row := s.execer(ctx).QueryRowContext(ctx, mergeQuery,
		subjectID,
		string(update.Status),
		lastCheck,
		update.CheckCount,
		update.ReferenceURL,
	)
	record, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("merge verification: %w", err)
	}
	return record, nil
}

// FindVerification returns the stored record or sentinel.ErrNotFound.
func (s *PostgresStore) FindVerification(ctx context.Context, subjectID string) (*models.VerificationRecord, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT status, last_check_at, check_count, reference_url
		FROM subject_verifications
		WHERE subject_id = $1
	`, subjectID)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification: %w", err)
	}
	return record, nil
}

// Migrate applies the profile schema, inside the context transaction if any.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.execer(ctx).ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply profile schema: %w", err)
	}
	return nil
}

func scanRecord(row *sql.Row) (*models.VerificationRecord, error) {
	var (
		status    string
		lastCheck sql.NullTime
		record    models.VerificationRecord
	)
	if err := row.Scan(&status, &lastCheck, &record.CheckCount, &record.ReferenceURL); err != nil {
		return nil, err
	}
	record.Status = models.Status(status)
	if lastCheck.Valid {
		t := lastCheck.Time.UTC()
		record.LastCheckAt = &t
	}
	return &record, nil
}
