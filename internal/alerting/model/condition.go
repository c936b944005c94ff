package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingMetricName indicates a metric condition without a metric_name key.
	ErrMissingMetricName = errors.New("missing metric_name in condition")
	// ErrMissingPatternOrLevel indicates a log condition with neither pattern nor level.
	ErrMissingPatternOrLevel = errors.New("missing pattern or level in condition")
	// ErrMissingOperationName indicates a trace condition without an operation_name key.
	ErrMissingOperationName = errors.New("missing operation_name in condition")
)

// MetricCondition configures the metric threshold strategy. The rule's
// Threshold and CompareOp supply the numeric comparison.
type MetricCondition struct {
	MetricName string `json:"metric_name"`
}

// LogCondition configures the log-pattern count strategy. A log record matches
// if any provided criterion matches (OR across criteria). At least one of
// Pattern or Level must be set.
type LogCondition struct {
	Pattern string `json:"pattern,omitempty"` // substring match on message
	Level   string `json:"level,omitempty"`   // case-insensitive exact match
	Source  string `json:"source,omitempty"`  // exact match
}

// TraceCondition configures the trace error-rate strategy. DurationThreshold
// is informational only: spans above it are counted as slow but do not affect
// triggering.
type TraceCondition struct {
	OperationName     string   `json:"operation_name"`
	DurationThreshold *float64 `json:"duration_threshold,omitempty"`
}

// Condition is the per-type configuration of a rule, one variant populated
// according to the rule type. Decoding from storage is lenient so that a rule
// with a malformed condition still reaches the evaluator, which reports the
// problem as a non-triggering evaluation error instead of failing the load.
type Condition struct {
	Metric *MetricCondition `json:"-"`
	Log    *LogCondition    `json:"-"`
	Trace  *TraceCondition  `json:"-"`
	Custom json.RawMessage  `json:"-"`
}

// DecodeCondition interprets a raw condition mapping for the given rule type.
// Absent keys decode to zero values; Validate reports them.
func DecodeCondition(rt RuleType, raw []byte) Condition {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var c Condition
	switch rt {
	case RuleTypeMetric:
		c.Metric = &MetricCondition{}
		_ = json.Unmarshal(raw, c.Metric)
	case RuleTypeLog:
		c.Log = &LogCondition{}
		_ = json.Unmarshal(raw, c.Log)
	case RuleTypeTrace:
		c.Trace = &TraceCondition{}
		_ = json.Unmarshal(raw, c.Trace)
	default:
		c.Custom = append(json.RawMessage(nil), raw...)
	}
	return c
}

// NewCondition is the validating factory used at rule-creation time. It
// rejects conditions whose required keys are absent so that misconfiguration
// is caught once, not re-validated on every evaluation.
func NewCondition(rt RuleType, raw []byte) (Condition, error) {
	c := DecodeCondition(rt, raw)
	if err := c.Validate(rt); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// Validate checks the required keys for the variant matching rt.
func (c Condition) Validate(rt RuleType) error {
	switch rt {
	case RuleTypeMetric:
		if c.Metric == nil || c.Metric.MetricName == "" {
			return ErrMissingMetricName
		}
	case RuleTypeLog:
		if c.Log == nil || (c.Log.Pattern == "" && c.Log.Level == "") {
			return ErrMissingPatternOrLevel
		}
	case RuleTypeTrace:
		if c.Trace == nil || c.Trace.OperationName == "" {
			return ErrMissingOperationName
		}
	case RuleTypeCustom:
		// custom payloads are opaque; nothing to validate here
	default:
		return fmt.Errorf("unknown rule type: %s", rt)
	}
	return nil
}

// MarshalJSON emits the populated variant as the open key/value mapping the
// schema stores.
func (c Condition) MarshalJSON() ([]byte, error) {
	switch {
	case c.Metric != nil:
		return json.Marshal(c.Metric)
	case c.Log != nil:
		return json.Marshal(c.Log)
	case c.Trace != nil:
		return json.Marshal(c.Trace)
	case c.Custom != nil:
		return c.Custom, nil
	default:
		return []byte("{}"), nil
	}
}

// UnmarshalJSON keeps the raw mapping; the owning rule's type decides the
// variant via DecodeCondition once it is known.
func (c *Condition) UnmarshalJSON(data []byte) error {
	c.Custom = append(json.RawMessage(nil), data...)
	return nil
}
