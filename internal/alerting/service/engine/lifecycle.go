package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/store"
	"github.com/rs/zerolog/log"
)

// ErrNotAcknowledgeable is returned when acknowledging an alert that is not
// firing. Resolution stays permissive: resolving an already-resolved alert is
// a harmless overwrite, matching the permanent-terminal-state model.
var ErrNotAcknowledgeable = errors.New("only firing alerts can be acknowledged")

// TriggerOptions carries optional context for a new alert, usually captured
// from the evaluation detail.
type TriggerOptions struct {
	SourceID    *string
	Labels      map[string]any
	Annotations map[string]any
	CIID        *int64
}

// TriggerOutcome distinguishes the three ways a trigger can end without
// conflating them: an alert was created, creation was suppressed by a silence,
// or the store failed. Silenced is not an error.
type TriggerOutcome struct {
	Alert    *model.Alert
	Silenced bool
	Err      error
}

// TriggerAlert opens a new firing alert for the rule unless an active silence
// scoped to the rule suppresses it. Storage faults are logged and reported in
// the outcome; they never propagate as a panic or abort a cycle.
func (e *Engine) TriggerAlert(ctx context.Context, rule *model.AlertRule, severity model.Severity, source string, opts TriggerOptions) TriggerOutcome {
	silenced, err := e.IsSilenced(ctx, &rule.ID, nil)
	if err != nil {
		log.Error().Err(err).Int64("rule_id", rule.ID).Msg("silence check failed")
		return TriggerOutcome{Err: fmt.Errorf("check silences: %w", err)}
	}
	if silenced {
		log.Info().Int64("rule_id", rule.ID).Msg("alert for rule is silenced, skipping")
		return TriggerOutcome{Silenced: true}
	}

	alert := &model.Alert{
		RuleID:      rule.ID,
		Status:      model.AlertStatusFiring,
		Severity:    severity,
		Title:       fmt.Sprintf("[%s] %s", strings.ToUpper(string(severity)), rule.Name),
		Message:     fmt.Sprintf("alert rule %s was triggered", rule.Name),
		Source:      source,
		SourceID:    opts.SourceID,
		Labels:      opts.Labels,
		Annotations: opts.Annotations,
		CIID:        opts.CIID,
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		log.Error().Err(err).Int64("rule_id", rule.ID).Msg("failed to trigger alert")
		return TriggerOutcome{Err: fmt.Errorf("create alert: %w", err)}
	}
	alertsFired.Inc()
	log.Info().Int64("alert_id", alert.ID).Int64("rule_id", rule.ID).Msg("alert triggered")
	return TriggerOutcome{Alert: alert}
}

// ResolveAlert transitions an alert to resolved and stamps resolved_at. The
// resolver, when given, is recorded in resolved_by and mirrored into
// acknowledged_by for compatibility with readers of the original schema.
// Returns (nil, nil) when the alert does not exist.
func (e *Engine) ResolveAlert(ctx context.Context, alertID int64, resolvedBy string) (*model.Alert, error) {
	alert, err := e.alerts.Get(ctx, alertID)
	if err != nil {
		log.Error().Err(err).Int64("alert_id", alertID).Msg("failed to load alert for resolution")
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if alert == nil {
		return nil, nil
	}
	now := e.now()
	alert.Status = model.AlertStatusResolved
	alert.ResolvedAt = &now
	if resolvedBy != "" {
		alert.ResolvedBy = &resolvedBy
		alert.AcknowledgedBy = &resolvedBy
	}
	if err := e.alerts.Update(ctx, alert); err != nil {
		log.Error().Err(err).Int64("alert_id", alertID).Msg("failed to resolve alert")
		return nil, fmt.Errorf("update alert: %w", err)
	}
	alertsResolved.Inc()
	log.Info().Int64("alert_id", alert.ID).Msg("alert resolved")
	return alert, nil
}

// AcknowledgeAlert transitions firing → acknowledged. There is no automatic
// further transition; an acknowledged alert resolves through ResolveAlert.
func (e *Engine) AcknowledgeAlert(ctx context.Context, alertID int64, ackBy string) (*model.Alert, error) {
	alert, err := e.alerts.Get(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if alert == nil {
		return nil, nil
	}
	if alert.Status != model.AlertStatusFiring {
		return nil, ErrNotAcknowledgeable
	}
	now := e.now()
	alert.Status = model.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	if ackBy != "" {
		alert.AcknowledgedBy = &ackBy
	}
	if err := e.alerts.Update(ctx, alert); err != nil {
		log.Error().Err(err).Int64("alert_id", alertID).Msg("failed to acknowledge alert")
		return nil, fmt.Errorf("update alert: %w", err)
	}
	log.Info().Int64("alert_id", alert.ID).Str("acknowledged_by", ackBy).Msg("alert acknowledged")
	return alert, nil
}

// FiringAlertsForRule returns the open firing alerts for one rule. The
// orchestrator uses it both for dedup and to find alerts to close when a
// condition stops triggering.
func (e *Engine) FiringAlertsForRule(ctx context.Context, ruleID int64) ([]*model.Alert, error) {
	firing := model.AlertStatusFiring
	return e.alerts.List(ctx, store.AlertFilter{RuleID: &ruleID, Status: &firing})
}
