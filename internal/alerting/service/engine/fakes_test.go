package engine

import (
	"context"
	"time"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/store"
)

// In-memory store fakes for engine tests. Error fields inject failures at
// specific operations.

type memRuleStore struct {
	rules   []*model.AlertRule
	listErr error
}

func (s *memRuleStore) Create(ctx context.Context, r *model.AlertRule) error {
	r.ID = int64(len(s.rules) + 1)
	s.rules = append(s.rules, r)
	return nil
}

func (s *memRuleStore) Get(ctx context.Context, id int64) (*model.AlertRule, error) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *memRuleStore) GetByName(ctx context.Context, name string) (*model.AlertRule, error) {
	for _, r := range s.rules {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (s *memRuleStore) List(ctx context.Context, f store.RuleFilter) ([]*model.AlertRule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*model.AlertRule
	for _, r := range s.rules {
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.RuleType != nil && r.RuleType != *f.RuleType {
			continue
		}
		if f.Severity != nil && r.Severity != *f.Severity {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memRuleStore) Update(ctx context.Context, r *model.AlertRule) error {
	for i, old := range s.rules {
		if old.ID == r.ID {
			s.rules[i] = r
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memRuleStore) Delete(ctx context.Context, id int64) error {
	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memRuleStore) Count(ctx context.Context, f store.RuleFilter) (int, error) {
	rules, err := s.List(ctx, f)
	return len(rules), err
}

type memAlertStore struct {
	seq       int64
	alerts    map[int64]*model.Alert
	createErr error
	updateErr error
	listErr   error
	deleteErr map[int64]error
}

func newMemAlertStore() *memAlertStore {
	return &memAlertStore{alerts: map[int64]*model.Alert{}}
}

func (s *memAlertStore) put(a *model.Alert) *model.Alert {
	s.seq++
	a.ID = s.seq
	s.alerts[a.ID] = a
	return a
}

func (s *memAlertStore) Create(ctx context.Context, a *model.Alert) error {
	if s.createErr != nil {
		return s.createErr
	}
	now := time.Now()
	if a.FiringAt.IsZero() {
		a.FiringAt = now
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	s.put(a)
	return nil
}

func (s *memAlertStore) Get(ctx context.Context, id int64) (*model.Alert, error) {
	return s.alerts[id], nil
}

func (s *memAlertStore) List(ctx context.Context, f store.AlertFilter) ([]*model.Alert, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*model.Alert
	for _, a := range s.alerts {
		if f.RuleID != nil && a.RuleID != *f.RuleID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.Severity != nil && a.Severity != *f.Severity {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memAlertStore) Update(ctx context.Context, a *model.Alert) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.alerts[a.ID]; !ok {
		return store.ErrNotFound
	}
	s.alerts[a.ID] = a
	return nil
}

func (s *memAlertStore) Delete(ctx context.Context, id int64) error {
	if err := s.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := s.alerts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.alerts, id)
	return nil
}

func (s *memAlertStore) Count(ctx context.Context, f store.AlertFilter) (int, error) {
	alerts, err := s.List(ctx, f)
	return len(alerts), err
}

func (s *memAlertStore) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.Alert, error) {
	var out []*model.Alert
	for _, a := range s.alerts {
		if a.CreatedAt.Before(cutoff) && a.Status != model.AlertStatusFiring {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memAlertStore) WithTx(ctx context.Context, fn func(store.AlertStore) error) error {
	return fn(s)
}

type memSilenceStore struct {
	seq      int64
	silences []*model.AlertSilence
	err      error
}

func (s *memSilenceStore) Create(ctx context.Context, sil *model.AlertSilence) error {
	s.seq++
	sil.ID = s.seq
	s.silences = append(s.silences, sil)
	return nil
}

func (s *memSilenceStore) Get(ctx context.Context, id int64) (*model.AlertSilence, error) {
	for _, sil := range s.silences {
		if sil.ID == id {
			return sil, nil
		}
	}
	return nil, nil
}

func (s *memSilenceStore) ListActive(ctx context.Context, alertID, ruleID *int64, now time.Time) ([]*model.AlertSilence, error) {
	var out []*model.AlertSilence
	for _, sil := range s.silences {
		if sil.InEffect(now) && silenceMatches(sil, ruleID, alertID) {
			out = append(out, sil)
		}
	}
	return out, nil
}

func (s *memSilenceStore) Deactivate(ctx context.Context, id int64) (*model.AlertSilence, error) {
	for _, sil := range s.silences {
		if sil.ID == id {
			sil.IsActive = false
			return sil, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memSilenceStore) AnyActive(ctx context.Context, ruleID, alertID *int64, now time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, sil := range s.silences {
		if sil.InEffect(now) && silenceMatches(sil, ruleID, alertID) {
			return true, nil
		}
	}
	return false, nil
}

func silenceMatches(sil *model.AlertSilence, ruleID, alertID *int64) bool {
	if ruleID != nil && (sil.RuleID == nil || *sil.RuleID != *ruleID) {
		return false
	}
	if alertID != nil && (sil.AlertID == nil || *sil.AlertID != *alertID) {
		return false
	}
	return true
}

// newTestEngine wires an engine over fresh fakes with a controllable clock.
func newTestEngine(at time.Time) (*Engine, *memRuleStore, *memAlertStore, *memSilenceStore) {
	rules := &memRuleStore{}
	alerts := newMemAlertStore()
	silences := &memSilenceStore{}
	e := New(rules, alerts, silences)
	if !at.IsZero() {
		e.now = func() time.Time { return at }
	}
	return e, rules, alerts, silences
}

func metricRule(id int64, name, metricName string, threshold float64, op string) *model.AlertRule {
	return &model.AlertRule{
		ID:        id,
		Name:      name,
		RuleType:  model.RuleTypeMetric,
		Status:    model.RuleStatusActive,
		Severity:  model.SeverityCritical,
		Condition: model.Condition{Metric: &model.MetricCondition{MetricName: metricName}},
		Threshold: threshold,
		CompareOp: op,
	}
}

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }
