package engine

import "time"

// LogRecord is one log line presented to a log-rule evaluation. All fields are
// optional on the wire; absent fields simply never match a criterion.
type LogRecord struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`
}

// SpanRecord is one trace span presented to a trace-rule evaluation. Status is
// compared against the literal "ERROR"; Duration is in milliseconds.
type SpanRecord struct {
	OperationName string  `json:"operation_name"`
	Status        string  `json:"status"`
	Duration      float64 `json:"duration"`
}

// Batch is the observation data for one evaluation cycle. Only the field
// matching the cycle's data source is consulted.
type Batch struct {
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Logs    []LogRecord        `json:"logs,omitempty"`
	Spans   []SpanRecord       `json:"spans,omitempty"`
}

// CycleStats summarizes one orchestrator pass over the candidate rules.
type CycleStats struct {
	CycleID         string    `json:"cycle_id"`
	TotalRules      int       `json:"total_rules"`
	EvaluatedRules  int       `json:"evaluated_rules"`
	TriggeredRules  int       `json:"triggered_rules"`
	TriggeredAlerts int       `json:"triggered_alerts"`
	Timestamp       time.Time `json:"timestamp"`
}

// PurgeResult summarizes one retention sweep.
type PurgeResult struct {
	DeletedAlerts int       `json:"deleted_alerts"`
	CutoffTime    time.Time `json:"cutoff_time"`
	RetentionDays int       `json:"retention_days"`
}
