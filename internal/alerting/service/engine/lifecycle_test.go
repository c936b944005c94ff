package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/argussight/argus/internal/alerting/model"
)

var testClock = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func TestTriggerAlertCreatesFiring(t *testing.T) {
	e, _, alerts, _ := newTestEngine(testClock)
	rule := metricRule(7, "cpu usage critical", "cpu_usage", 90, ">")

	out := e.TriggerAlert(context.Background(), rule, model.SeverityCritical, "metric", TriggerOptions{
		Labels: map[string]any{"metric_value": 95.0},
	})
	if out.Err != nil || out.Silenced {
		t.Fatalf("unexpected outcome: err=%v silenced=%v", out.Err, out.Silenced)
	}
	if out.Alert == nil {
		t.Fatal("expected a created alert")
	}
	if out.Alert.Title != "[CRITICAL] cpu usage critical" {
		t.Errorf("title = %q", out.Alert.Title)
	}
	if out.Alert.Status != model.AlertStatusFiring {
		t.Errorf("status = %s, want firing", out.Alert.Status)
	}
	if out.Alert.RuleID != 7 {
		t.Errorf("rule id = %d, want 7", out.Alert.RuleID)
	}
	if got, _ := alerts.Get(context.Background(), out.Alert.ID); got == nil {
		t.Error("alert was not persisted")
	}
}

func TestTriggerAlertSilenced(t *testing.T) {
	e, _, alerts, silences := newTestEngine(testClock)
	rule := metricRule(7, "cpu usage critical", "cpu_usage", 90, ">")
	silences.silences = append(silences.silences, &model.AlertSilence{
		ID:       1,
		RuleID:   i64(7),
		IsActive: true,
		EndsAt:   testClock.Add(time.Hour),
	})

	out := e.TriggerAlert(context.Background(), rule, model.SeverityCritical, "metric", TriggerOptions{})
	if !out.Silenced {
		t.Fatal("expected a silenced outcome")
	}
	if out.Alert != nil || out.Err != nil {
		t.Fatalf("silenced outcome must carry no alert and no error, got alert=%v err=%v", out.Alert, out.Err)
	}
	if len(alerts.alerts) != 0 {
		t.Error("silenced trigger must not persist an alert")
	}
}

func TestTriggerAlertStorageFault(t *testing.T) {
	e, _, alerts, _ := newTestEngine(testClock)
	alerts.createErr = errors.New("connection reset")
	rule := metricRule(7, "cpu usage critical", "cpu_usage", 90, ">")

	out := e.TriggerAlert(context.Background(), rule, model.SeverityCritical, "metric", TriggerOptions{})
	if out.Err == nil {
		t.Fatal("expected a storage error in the outcome")
	}
	if out.Silenced {
		t.Error("a storage fault must not be reported as silenced")
	}
}

func TestTriggerAlertSilenceCheckFault(t *testing.T) {
	e, _, _, silences := newTestEngine(testClock)
	silences.err = errors.New("connection reset")
	rule := metricRule(7, "cpu usage critical", "cpu_usage", 90, ">")

	out := e.TriggerAlert(context.Background(), rule, model.SeverityCritical, "metric", TriggerOptions{})
	if out.Err == nil {
		t.Fatal("expected the silence check error to surface")
	}
	if out.Silenced {
		t.Error("a failed silence check must not be reported as silenced")
	}
}

func TestResolveAlert(t *testing.T) {
	e, _, alerts, _ := newTestEngine(testClock)
	alerts.put(&model.Alert{RuleID: 7, Status: model.AlertStatusFiring})

	resolved, err := e.ResolveAlert(context.Background(), 1, "ops@example.com")
	if err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}
	if resolved.Status != model.AlertStatusResolved {
		t.Errorf("status = %s, want resolved", resolved.Status)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(testClock) {
		t.Errorf("resolved_at = %v, want %v", resolved.ResolvedAt, testClock)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != "ops@example.com" {
		t.Errorf("resolved_by = %v", resolved.ResolvedBy)
	}
	// The resolver is mirrored into acknowledged_by for older readers.
	if resolved.AcknowledgedBy == nil || *resolved.AcknowledgedBy != "ops@example.com" {
		t.Errorf("acknowledged_by = %v, want mirror of resolver", resolved.AcknowledgedBy)
	}
}

func TestResolveAlertWithoutResolver(t *testing.T) {
	e, _, alerts, _ := newTestEngine(testClock)
	alerts.put(&model.Alert{RuleID: 7, Status: model.AlertStatusFiring})

	resolved, err := e.ResolveAlert(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}
	if resolved.ResolvedBy != nil || resolved.AcknowledgedBy != nil {
		t.Errorf("automatic resolution must leave resolver fields empty, got %v/%v", resolved.ResolvedBy, resolved.AcknowledgedBy)
	}
}

func TestResolveAlertMissing(t *testing.T) {
	e, _, _, _ := newTestEngine(testClock)
	resolved, err := e.ResolveAlert(context.Background(), 404, "ops")
	if err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}
	if resolved != nil {
		t.Errorf("missing alert must yield nil, got %v", resolved)
	}
}

func TestAcknowledgeAlert(t *testing.T) {
	e, _, alerts, _ := newTestEngine(testClock)
	alerts.put(&model.Alert{RuleID: 7, Status: model.AlertStatusFiring})

	acked, err := e.AcknowledgeAlert(context.Background(), 1, "oncall")
	if err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}
	if acked.Status != model.AlertStatusAcknowledged {
		t.Errorf("status = %s, want acknowledged", acked.Status)
	}
	if acked.AcknowledgedAt == nil || !acked.AcknowledgedAt.Equal(testClock) {
		t.Errorf("acknowledged_at = %v", acked.AcknowledgedAt)
	}
	if acked.AcknowledgedBy == nil || *acked.AcknowledgedBy != "oncall" {
		t.Errorf("acknowledged_by = %v", acked.AcknowledgedBy)
	}
}

func TestAcknowledgeAlertNotFiring(t *testing.T) {
	e, _, alerts, _ := newTestEngine(testClock)
	alerts.put(&model.Alert{RuleID: 7, Status: model.AlertStatusResolved})

	if _, err := e.AcknowledgeAlert(context.Background(), 1, "oncall"); !errors.Is(err, ErrNotAcknowledgeable) {
		t.Fatalf("err = %v, want ErrNotAcknowledgeable", err)
	}
}
