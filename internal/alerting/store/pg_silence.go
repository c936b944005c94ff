package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	adb "github.com/argussight/argus/internal/alerting/database"
	"github.com/argussight/argus/internal/alerting/model"
)

const silenceCols = `id, alert_id, alert_rule_id, silence_reason, started_at, ends_at, is_active, created_by, created_at`

// PgSilenceStore implements SilenceStore on PostgreSQL.
type PgSilenceStore struct {
	DB *adb.Database
}

func NewPgSilenceStore(db *adb.Database) *PgSilenceStore { return &PgSilenceStore{DB: db} }

func (s *PgSilenceStore) Create(ctx context.Context, sil *model.AlertSilence) error {
	const q = `
	INSERT INTO alert_silences (alert_id, alert_rule_id, silence_reason, ends_at, is_active, created_by)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, started_at, created_at`
	row := s.DB.QueryRowContext(ctx, q,
		toNullInt64(sil.AlertID), toNullInt64(sil.RuleID), sil.Reason, sil.EndsAt,
		sil.IsActive, sil.CreatedBy)
	if err := row.Scan(&sil.ID, &sil.StartedAt, &sil.CreatedAt); err != nil {
		return fmt.Errorf("failed to create alert silence: %w", err)
	}
	return nil
}

func (s *PgSilenceStore) Get(ctx context.Context, id int64) (*model.AlertSilence, error) {
	q := `SELECT ` + silenceCols + ` FROM alert_silences WHERE id = $1`
	rows, err := s.DB.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert silence: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSilence(rows)
}

func (s *PgSilenceStore) ListActive(ctx context.Context, alertID, ruleID *int64, now time.Time) ([]*model.AlertSilence, error) {
	q := `SELECT ` + silenceCols + ` FROM alert_silences WHERE is_active = true AND ends_at > $1`
	args := []any{now}
	if alertID != nil {
		args = append(args, *alertID)
		q += fmt.Sprintf(" AND alert_id = $%d", len(args))
	}
	if ruleID != nil {
		args = append(args, *ruleID)
		q += fmt.Sprintf(" AND alert_rule_id = $%d", len(args))
	}
	q += " ORDER BY ends_at DESC"
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active silences: %w", err)
	}
	defer rows.Close()
	var out []*model.AlertSilence
	for rows.Next() {
		sil, err := scanSilence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sil)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating silences: %w", err)
	}
	return out, nil
}

func (s *PgSilenceStore) Deactivate(ctx context.Context, id int64) (*model.AlertSilence, error) {
	const q = `UPDATE alert_silences SET is_active = false WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate silence: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *PgSilenceStore) AnyActive(ctx context.Context, ruleID, alertID *int64, now time.Time) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM alert_silences WHERE is_active = true AND ends_at > $1`
	args := []any{now}
	if ruleID != nil {
		args = append(args, *ruleID)
		q += fmt.Sprintf(" AND alert_rule_id = $%d", len(args))
	}
	if alertID != nil {
		args = append(args, *alertID)
		q += fmt.Sprintf(" AND alert_id = $%d", len(args))
	}
	q += ")"
	var exists bool
	if err := s.DB.QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check silences: %w", err)
	}
	return exists, nil
}

func scanSilence(rows *sql.Rows) (*model.AlertSilence, error) {
	var sil model.AlertSilence
	var alertID, ruleID sql.NullInt64
	var createdBy sql.NullString
	err := rows.Scan(&sil.ID, &alertID, &ruleID, &sil.Reason, &sil.StartedAt, &sil.EndsAt,
		&sil.IsActive, &createdBy, &sil.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert silence: %w", err)
	}
	sil.AlertID = int64Ptr(alertID)
	sil.RuleID = int64Ptr(ruleID)
	sil.CreatedBy = createdBy.String
	return &sil, nil
}
