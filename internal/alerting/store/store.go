package store

import (
	"context"
	"errors"
	"time"

	"github.com/argussight/argus/internal/alerting/model"
)

// DefaultListLimit bounds list queries when the caller does not page explicitly.
const DefaultListLimit = 100

// ErrNotFound is returned by Update/Delete/Deactivate when the target row does
// not exist. Get methods return (nil, nil) instead so that callers treating
// absence as a no-op do not have to branch on the error.
var ErrNotFound = errors.New("not found")

// RuleFilter narrows rule listings. Nil fields are not applied.
type RuleFilter struct {
	RuleType *model.RuleType
	Status   *model.RuleStatus
	Severity *model.Severity
	Offset   int
	Limit    int
}

// AlertFilter narrows alert listings. Since/Until bound firing_at.
type AlertFilter struct {
	Status   *model.AlertStatus
	Severity *model.Severity
	RuleID   *int64
	CIID     *int64
	Since    *time.Time
	Until    *time.Time
	Offset   int
	Limit    int
}

// RuleStore abstracts persistence for alert rules. The engine only reads
// active rules; the API layer owns create/update/delete.
type RuleStore interface {
	Create(ctx context.Context, r *model.AlertRule) error
	Get(ctx context.Context, id int64) (*model.AlertRule, error)
	GetByName(ctx context.Context, name string) (*model.AlertRule, error)
	List(ctx context.Context, f RuleFilter) ([]*model.AlertRule, error)
	Update(ctx context.Context, r *model.AlertRule) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, f RuleFilter) (int, error)
}

// AlertStore abstracts persistence for alerts. Alerts are created only by the
// lifecycle manager, which preserves the at-most-one-firing-per-rule invariant.
type AlertStore interface {
	Create(ctx context.Context, a *model.Alert) error
	Get(ctx context.Context, id int64) (*model.Alert, error)
	List(ctx context.Context, f AlertFilter) ([]*model.Alert, error)
	Update(ctx context.Context, a *model.Alert) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, f AlertFilter) (int, error)

	// ListCreatedBefore returns alerts created before cutoff whose status is
	// not firing, for the retention sweeper.
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.Alert, error)

	// WithTx calls fn with a transaction-scoped AlertStore and commits once fn
	// returns nil. Implementations without transactions may call fn directly.
	WithTx(ctx context.Context, fn func(AlertStore) error) error
}

// SilenceStore abstracts persistence for silences. The engine only reads them;
// creation and deactivation belong to the API layer.
type SilenceStore interface {
	Create(ctx context.Context, s *model.AlertSilence) error
	Get(ctx context.Context, id int64) (*model.AlertSilence, error)
	ListActive(ctx context.Context, alertID, ruleID *int64, now time.Time) ([]*model.AlertSilence, error)
	Deactivate(ctx context.Context, id int64) (*model.AlertSilence, error)

	// AnyActive reports whether at least one silence is in effect at now for
	// the given scope. Both identifier filters apply when both are set.
	AnyActive(ctx context.Context, ruleID, alertID *int64, now time.Time) (bool, error)
}
