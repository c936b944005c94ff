package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/store"
	"github.com/rs/zerolog/log"
)

// DefaultRetentionDays keeps closed alerts for roughly one quarter.
const DefaultRetentionDays = 90

// PurgeOlderThan deletes alerts created before now − retentionDays whose
// status is not firing. Firing alerts are never purged regardless of age.
// Rows are deleted individually, skipping past per-row failures, with a single
// commit at the end.
func (e *Engine) PurgeOlderThan(ctx context.Context, retentionDays int) (*PurgeResult, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := e.now().UTC().AddDate(0, 0, -retentionDays)

	expired, err := e.alerts.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired alerts: %w", err)
	}

	deleted := 0
	err = e.alerts.WithTx(ctx, func(tx store.AlertStore) error {
		for _, a := range expired {
			if a.Status == model.AlertStatusFiring {
				continue
			}
			if err := tx.Delete(ctx, a.ID); err != nil {
				log.Error().Err(err).Int64("alert_id", a.ID).Msg("failed to delete expired alert")
				continue
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purge expired alerts: %w", err)
	}

	alertsPurged.Add(float64(deleted))
	log.Info().Int("deleted", deleted).Time("cutoff", cutoff).Int("retention_days", retentionDays).Msg("retention sweep completed")
	return &PurgeResult{DeletedAlerts: deleted, CutoffTime: cutoff, RetentionDays: retentionDays}, nil
}

// RetentionDeps configures the periodic retention sweep.
type RetentionDeps struct {
	Interval      time.Duration
	RetentionDays int
}

// StartRetentionScheduler runs retention sweeps until ctx is cancelled. One
// sweep runs immediately on startup.
func (e *Engine) StartRetentionScheduler(ctx context.Context, deps RetentionDeps) {
	if deps.Interval <= 0 {
		deps.Interval = 24 * time.Hour
	}
	if deps.RetentionDays <= 0 {
		deps.RetentionDays = DefaultRetentionDays
	}

	if _, err := e.PurgeOlderThan(ctx, deps.RetentionDays); err != nil {
		log.Error().Err(err).Msg("retention sweep failed on startup")
	}

	t := time.NewTicker(deps.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := e.PurgeOlderThan(ctx, deps.RetentionDays); err != nil {
				log.Error().Err(err).Msg("retention sweep failed")
			}
		}
	}
}
