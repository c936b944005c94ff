package model

import "time"

// RuleType selects the evaluation strategy for a rule. It is set at creation
// time and assumed stable afterwards; the evaluator dispatches on it.
type RuleType string

const (
	RuleTypeMetric RuleType = "metric"
	RuleTypeLog    RuleType = "log"
	RuleTypeTrace  RuleType = "trace"
	RuleTypeCustom RuleType = "custom"
)

// RuleStatus controls whether a rule participates in evaluation cycles.
// Only active rules are evaluated.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusInactive RuleStatus = "inactive"
	RuleStatusPaused   RuleStatus = "paused"
)

// Severity is copied from the rule onto every alert it creates. Later edits to
// the rule do not retroactively change open alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AlertStatus is the lifecycle state of a single alert. The silenced value
// exists in the schema but the engine treats silencing as a gate on creation,
// not a stored transition.
type AlertStatus string

const (
	AlertStatusFiring       AlertStatus = "firing"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusSilenced     AlertStatus = "silenced"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
)

// DataSource identifies which kind of observation batch a cycle carries.
type DataSource string

const (
	DataSourceMetric DataSource = "metric"
	DataSourceLog    DataSource = "log"
	DataSourceTrace  DataSource = "trace"
)

// RuleTypeForSource maps an ingest data source onto the rule type it selects.
// Custom rules have no data source of their own, so an exact-match filter on
// the three built-in kinds never picks them up.
func RuleTypeForSource(src DataSource) (RuleType, bool) {
	switch src {
	case DataSourceMetric:
		return RuleTypeMetric, true
	case DataSourceLog:
		return RuleTypeLog, true
	case DataSourceTrace:
		return RuleTypeTrace, true
	default:
		return "", false
	}
}

// CompareOps lists the comparison operators the metric evaluator accepts.
var CompareOps = []string{">", ">=", "<", "<=", "==", "!="}

func ValidCompareOp(op string) bool {
	for _, v := range CompareOps {
		if op == v {
			return true
		}
	}
	return false
}

// AlertRule is a named, versioned condition definition.
type AlertRule struct {
	ID                 int64             `json:"id"`
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	RuleType           RuleType          `json:"rule_type"`
	Status             RuleStatus        `json:"status"`
	Severity           Severity          `json:"severity"`
	Condition          Condition         `json:"condition"`
	Threshold          float64           `json:"threshold"`
	CompareOp          string            `json:"comparison_operator"`
	Duration           int               `json:"duration"`            // seconds the condition must hold
	EvaluationInterval int               `json:"evaluation_interval"` // seconds between evaluations
	Tags               map[string]string `json:"tags,omitempty"`
	CIID               *int64            `json:"ci_id,omitempty"`
	CreatedBy          string            `json:"created_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Alert is one instance of a rule having been observed to hold.
type Alert struct {
	ID             int64          `json:"id"`
	RuleID         int64          `json:"alert_rule_id"`
	Status         AlertStatus    `json:"status"`
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Source         string         `json:"source"`
	SourceID       *string        `json:"source_id,omitempty"`
	Labels         map[string]any `json:"labels,omitempty"`
	Annotations    map[string]any `json:"annotations,omitempty"`
	CIID           *int64         `json:"ci_id,omitempty"`
	FiringAt       time.Time      `json:"firing_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *string        `json:"acknowledged_by,omitempty"`
	ResolvedBy     *string        `json:"resolved_by,omitempty"`
	SilencedUntil  *time.Time     `json:"silenced_until,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AlertSilence is a time-boxed suppression scoped to an alert, a rule, or both.
type AlertSilence struct {
	ID        int64     `json:"id"`
	AlertID   *int64    `json:"alert_id,omitempty"`
	RuleID    *int64    `json:"alert_rule_id,omitempty"`
	Reason    string    `json:"silence_reason"`
	StartedAt time.Time `json:"started_at"`
	EndsAt    time.Time `json:"ends_at"`
	IsActive  bool      `json:"is_active"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InEffect reports whether the silence suppresses alerts at the given instant.
// Manual deactivation and expiry are independent: both must pass.
func (s *AlertSilence) InEffect(now time.Time) bool {
	return s.IsActive && now.Before(s.EndsAt)
}
