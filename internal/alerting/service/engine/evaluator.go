package engine

import (
	"fmt"
	"strings"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/rs/zerolog/log"
)

// Detail carries the per-rule evaluation outcome. It is captured into the
// labels of any alert the rule fires. An "error" key marks a non-triggering
// evaluation problem (misconfiguration or missing data), never a fault.
type Detail map[string]any

// Evaluate scores a single rule against an observation batch. It is a pure
// function: evaluation problems are reported in the detail and the rule is
// treated as not triggered for the cycle.
func Evaluate(rule *model.AlertRule, batch Batch) (bool, Detail) {
	if rule.Status != model.RuleStatusActive {
		return false, Detail{"error": "rule is not active"}
	}
	switch rule.RuleType {
	case model.RuleTypeMetric:
		return evaluateMetric(rule, batch.Metrics)
	case model.RuleTypeLog:
		return evaluateLog(rule, batch.Logs)
	case model.RuleTypeTrace:
		return evaluateTrace(rule, batch.Spans)
	case model.RuleTypeCustom:
		return evaluateCustom(rule)
	default:
		return false, Detail{"error": fmt.Sprintf("unknown rule type: %s", rule.RuleType)}
	}
}

func evaluateMetric(rule *model.AlertRule, metrics map[string]float64) (bool, Detail) {
	cond := rule.Condition.Metric
	if cond == nil || cond.MetricName == "" {
		return false, Detail{"error": model.ErrMissingMetricName.Error()}
	}
	value, ok := metrics[cond.MetricName]
	if !ok {
		return false, Detail{"error": fmt.Sprintf("metric %s not found", cond.MetricName)}
	}
	triggered, known := compare(value, rule.CompareOp, rule.Threshold)
	if !known {
		return false, Detail{"error": fmt.Sprintf("invalid operator: %s", rule.CompareOp)}
	}
	return triggered, Detail{
		"metric_name":  cond.MetricName,
		"metric_value": value,
		"threshold":    rule.Threshold,
		"operator":     rule.CompareOp,
		"is_triggered": triggered,
	}
}

// compare applies one of the six comparison operators. Equality is exact;
// there is no epsilon tolerance for == and != on floating values.
func compare(value float64, op string, threshold float64) (result, known bool) {
	switch op {
	case ">":
		return value > threshold, true
	case ">=":
		return value >= threshold, true
	case "<":
		return value < threshold, true
	case "<=":
		return value <= threshold, true
	case "==":
		return value == threshold, true
	case "!=":
		return value != threshold, true
	default:
		return false, false
	}
}

func evaluateLog(rule *model.AlertRule, logs []LogRecord) (bool, Detail) {
	cond := rule.Condition.Log
	if cond == nil || (cond.Pattern == "" && cond.Level == "") {
		return false, Detail{"error": model.ErrMissingPatternOrLevel.Error()}
	}
	// A record matches when ANY provided criterion matches, not all of them.
	matching := 0
	for _, rec := range logs {
		match := false
		if cond.Level != "" && strings.EqualFold(rec.Level, cond.Level) {
			match = true
		}
		if cond.Pattern != "" && strings.Contains(rec.Message, cond.Pattern) {
			match = true
		}
		if cond.Source != "" && rec.Source == cond.Source {
			match = true
		}
		if match {
			matching++
		}
	}
	triggered := float64(matching) >= rule.Threshold
	return triggered, Detail{
		"matching_count": matching,
		"threshold":      rule.Threshold,
		"is_triggered":   triggered,
		"pattern":        cond.Pattern,
		"level":          cond.Level,
		"source":         cond.Source,
	}
}

func evaluateTrace(rule *model.AlertRule, spans []SpanRecord) (bool, Detail) {
	cond := rule.Condition.Trace
	if cond == nil || cond.OperationName == "" {
		return false, Detail{"error": model.ErrMissingOperationName.Error()}
	}
	var total, errored, slow int
	for _, span := range spans {
		if !strings.Contains(span.OperationName, cond.OperationName) {
			continue
		}
		total++
		if span.Status == "ERROR" {
			errored++
		}
		// Slow spans are informational only; they never affect triggering.
		if cond.DurationThreshold != nil && span.Duration > *cond.DurationThreshold {
			slow++
		}
	}
	errorRate := 0.0
	triggered := false
	if total > 0 {
		errorRate = float64(errored) / float64(total) * 100
		triggered = errorRate >= rule.Threshold
	}
	return triggered, Detail{
		"total_traces": total,
		"error_traces": errored,
		"slow_traces":  slow,
		"error_rate":   errorRate,
		"threshold":    rule.Threshold,
		"is_triggered": triggered,
	}
}

// evaluateCustom is the reserved extension point. It must stay a safe no-op
// default rather than a failure that could abort a cycle.
func evaluateCustom(rule *model.AlertRule) (bool, Detail) {
	log.Warn().Int64("rule_id", rule.ID).Msg("custom rule evaluation not implemented yet")
	return false, Detail{"error": "custom rule evaluation not implemented"}
}
