package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	adb "github.com/argussight/argus/internal/alerting/database"
	"github.com/argussight/argus/internal/alerting/model"
	"github.com/jackc/pgx/v5/pgtype"
)

const alertCols = `id, alert_rule_id, status, severity, title, message, source, source_id,
	labels, annotations, ci_id, firing_at, resolved_at, acknowledged_at, acknowledged_by,
	resolved_by, silenced_until, created_at, updated_at`

// PgAlertStore implements AlertStore on PostgreSQL. WithTx scopes a copy of the
// store to a single transaction so the retention sweeper can delete rows
// individually and commit once.
type PgAlertStore struct {
	db   runner
	root *adb.Database
}

func NewPgAlertStore(db *adb.Database) *PgAlertStore { return &PgAlertStore{db: db, root: db} }

func (s *PgAlertStore) WithTx(ctx context.Context, fn func(AlertStore) error) error {
	if _, inTx := s.db.(*sql.Tx); inTx {
		return fn(s)
	}
	tx, err := s.root.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	scoped := &PgAlertStore{db: tx, root: s.root}
	if err := fn(scoped); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PgAlertStore) Create(ctx context.Context, a *model.Alert) error {
	labelsJSON, _ := json.Marshal(a.Labels)
	annotationsJSON, _ := json.Marshal(a.Annotations)
	const q = `
	INSERT INTO alerts
		(alert_rule_id, status, severity, title, message, source, source_id,
		 labels, annotations, ci_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10)
	RETURNING id, firing_at, created_at, updated_at`
	row := s.db.QueryRowContext(ctx, q,
		a.RuleID, a.Status, a.Severity, a.Title, a.Message, a.Source,
		toNullString(a.SourceID), string(labelsJSON), string(annotationsJSON),
		toNullInt64(a.CIID))
	if err := row.Scan(&a.ID, &a.FiringAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (s *PgAlertStore) Get(ctx context.Context, id int64) (*model.Alert, error) {
	q := `SELECT ` + alertCols + ` FROM alerts WHERE id = $1`
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanAlert(rows)
}

func (s *PgAlertStore) List(ctx context.Context, f AlertFilter) ([]*model.Alert, error) {
	where, args := alertWhere(f)
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM alerts%s ORDER BY firing_at DESC LIMIT $%d OFFSET $%d`,
		alertCols, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()
	var out []*model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return out, nil
}

func (s *PgAlertStore) Count(ctx context.Context, f AlertFilter) (int, error) {
	where, args := alertWhere(f)
	q := `SELECT COUNT(*) FROM alerts` + where
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

func (s *PgAlertStore) Update(ctx context.Context, a *model.Alert) error {
	labelsJSON, _ := json.Marshal(a.Labels)
	annotationsJSON, _ := json.Marshal(a.Annotations)
	const q = `
	UPDATE alerts SET
		status = $2, severity = $3, labels = $4::jsonb, annotations = $5::jsonb,
		resolved_at = $6, acknowledged_at = $7, acknowledged_by = $8, resolved_by = $9,
		silenced_until = $10, updated_at = now()
	WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q,
		a.ID, a.Status, a.Severity, string(labelsJSON), string(annotationsJSON),
		toTimestamptz(a.ResolvedAt), toTimestamptz(a.AcknowledgedAt),
		toNullString(a.AcknowledgedBy), toNullString(a.ResolvedBy),
		toTimestamptz(a.SilencedUntil))
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	return requireRow(res)
}

func (s *PgAlertStore) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM alerts WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return requireRow(res)
}

func (s *PgAlertStore) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.Alert, error) {
	q := `SELECT ` + alertCols + ` FROM alerts WHERE created_at < $1 AND status <> $2 ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, q, cutoff, model.AlertStatusFiring)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired alerts: %w", err)
	}
	defer rows.Close()
	var out []*model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired alerts: %w", err)
	}
	return out, nil
}

func alertWhere(f AlertFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Severity != nil {
		add("severity = $%d", *f.Severity)
	}
	if f.RuleID != nil {
		add("alert_rule_id = $%d", *f.RuleID)
	}
	if f.CIID != nil {
		add("ci_id = $%d", *f.CIID)
	}
	if f.Since != nil {
		add("firing_at >= $%d", *f.Since)
	}
	if f.Until != nil {
		add("firing_at <= $%d", *f.Until)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanAlert(rows *sql.Rows) (*model.Alert, error) {
	var a model.Alert
	var sourceID, ackBy, resolvedBy sql.NullString
	var labelsRaw, annotationsRaw []byte
	var ciID sql.NullInt64
	var resolvedAt, ackAt, silencedUntil pgtype.Timestamptz
	err := rows.Scan(&a.ID, &a.RuleID, &a.Status, &a.Severity, &a.Title, &a.Message,
		&a.Source, &sourceID, &labelsRaw, &annotationsRaw, &ciID, &a.FiringAt,
		&resolvedAt, &ackAt, &ackBy, &resolvedBy, &silencedUntil, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	a.SourceID = strPtr(sourceID)
	a.AcknowledgedBy = strPtr(ackBy)
	a.ResolvedBy = strPtr(resolvedBy)
	a.CIID = int64Ptr(ciID)
	a.ResolvedAt = timePtr(resolvedAt)
	a.AcknowledgedAt = timePtr(ackAt)
	a.SilencedUntil = timePtr(silencedUntil)
	if len(labelsRaw) > 0 {
		_ = json.Unmarshal(labelsRaw, &a.Labels)
	}
	if len(annotationsRaw) > 0 {
		_ = json.Unmarshal(annotationsRaw, &a.Annotations)
	}
	return &a, nil
}
