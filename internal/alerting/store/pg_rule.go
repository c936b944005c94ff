package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	adb "github.com/argussight/argus/internal/alerting/database"
	"github.com/argussight/argus/internal/alerting/model"
)

const ruleCols = `id, name, description, rule_type, status, severity, condition, threshold,
	comparison_operator, duration, evaluation_interval, tags, ci_id, created_by, created_at, updated_at`

// PgRuleStore implements RuleStore on PostgreSQL.
type PgRuleStore struct {
	DB *adb.Database
}

func NewPgRuleStore(db *adb.Database) *PgRuleStore { return &PgRuleStore{DB: db} }

func (s *PgRuleStore) Create(ctx context.Context, r *model.AlertRule) error {
	condJSON, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("marshal condition: %w", err)
	}
	tagsJSON, _ := json.Marshal(r.Tags)
	const q = `
	INSERT INTO alert_rules
		(name, description, rule_type, status, severity, condition, threshold,
		 comparison_operator, duration, evaluation_interval, tags, ci_id, created_by)
	VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11::jsonb, $12, $13)
	RETURNING id, created_at, updated_at`
	row := s.DB.QueryRowContext(ctx, q,
		r.Name, r.Description, r.RuleType, r.Status, r.Severity, string(condJSON),
		r.Threshold, r.CompareOp, r.Duration, r.EvaluationInterval, string(tagsJSON),
		toNullInt64(r.CIID), r.CreatedBy)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

func (s *PgRuleStore) Get(ctx context.Context, id int64) (*model.AlertRule, error) {
	q := `SELECT ` + ruleCols + ` FROM alert_rules WHERE id = $1`
	return s.getOne(ctx, q, id)
}

func (s *PgRuleStore) GetByName(ctx context.Context, name string) (*model.AlertRule, error) {
	q := `SELECT ` + ruleCols + ` FROM alert_rules WHERE name = $1`
	return s.getOne(ctx, q, name)
}

func (s *PgRuleStore) getOne(ctx context.Context, q string, arg any) (*model.AlertRule, error) {
	rows, err := s.DB.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRule(rows)
}

func (s *PgRuleStore) List(ctx context.Context, f RuleFilter) ([]*model.AlertRule, error) {
	where, args := ruleWhere(f)
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM alert_rules%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		ruleCols, where, len(args)-1, len(args))
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	defer rows.Close()
	var out []*model.AlertRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}
	return out, nil
}

func (s *PgRuleStore) Count(ctx context.Context, f RuleFilter) (int, error) {
	where, args := ruleWhere(f)
	q := `SELECT COUNT(*) FROM alert_rules` + where
	var n int
	if err := s.DB.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alert rules: %w", err)
	}
	return n, nil
}

func (s *PgRuleStore) Update(ctx context.Context, r *model.AlertRule) error {
	condJSON, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("marshal condition: %w", err)
	}
	tagsJSON, _ := json.Marshal(r.Tags)
	const q = `
	UPDATE alert_rules SET
		name = $2, description = $3, rule_type = $4, status = $5, severity = $6,
		condition = $7::jsonb, threshold = $8, comparison_operator = $9, duration = $10,
		evaluation_interval = $11, tags = $12::jsonb, ci_id = $13, updated_at = now()
	WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, q,
		r.ID, r.Name, r.Description, r.RuleType, r.Status, r.Severity, string(condJSON),
		r.Threshold, r.CompareOp, r.Duration, r.EvaluationInterval, string(tagsJSON),
		toNullInt64(r.CIID))
	if err != nil {
		return fmt.Errorf("failed to update alert rule: %w", err)
	}
	return requireRow(res)
}

func (s *PgRuleStore) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM alert_rules WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	return requireRow(res)
}

func ruleWhere(f RuleFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.RuleType != nil {
		add("rule_type = $%d", *f.RuleType)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Severity != nil {
		add("severity = $%d", *f.Severity)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRule(rows *sql.Rows) (*model.AlertRule, error) {
	var r model.AlertRule
	var desc, createdBy sql.NullString
	var condRaw, tagsRaw []byte
	var ciID sql.NullInt64
	err := rows.Scan(&r.ID, &r.Name, &desc, &r.RuleType, &r.Status, &r.Severity, &condRaw,
		&r.Threshold, &r.CompareOp, &r.Duration, &r.EvaluationInterval, &tagsRaw, &ciID,
		&createdBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert rule: %w", err)
	}
	r.Description = desc.String
	r.CreatedBy = createdBy.String
	r.CIID = int64Ptr(ciID)
	r.Condition = model.DecodeCondition(r.RuleType, condRaw)
	if len(tagsRaw) > 0 {
		_ = json.Unmarshal(tagsRaw, &r.Tags)
	}
	return &r, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
