package engine

import "context"

// IsSilenced reports whether active suppression applies right now for the
// given scope. With no scope at all it returns false immediately; with both
// identifiers the silence must match both.
func (e *Engine) IsSilenced(ctx context.Context, ruleID, alertID *int64) (bool, error) {
	if ruleID == nil && alertID == nil {
		return false, nil
	}
	return e.silences.AnyActive(ctx, ruleID, alertID, e.now())
}
