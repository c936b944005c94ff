package ingest

import (
	"context"
	"net/http"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/service/engine"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Runner is the evaluation entry point the handlers drive. Satisfied by
// *engine.Engine.
type Runner interface {
	RunCycle(ctx context.Context, source model.DataSource, batch engine.Batch) (*engine.CycleStats, error)
}

type Handler struct {
	runner Runner
	cache  BatchCache
}

// NewHandler uses a NoopCache; retried batches then evaluate again, which is
// safe because open alerts deduplicate per rule.
func NewHandler(runner Runner) *Handler { return &Handler{runner: runner, cache: NoopCache{}} }

func NewHandlerWithCache(runner Runner, cache BatchCache) *Handler {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Handler{runner: runner, cache: cache}
}

func (h *Handler) IngestMetrics(c *gin.Context) {
	if !AuthMiddleware(c) {
		return
	}
	var req MetricPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("failed to parse metric batch")
		c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_PARAMETER", "message": "invalid JSON"}})
		return
	}
	if !h.claimBatch(c, req.BatchID) {
		return
	}
	h.run(c, model.DataSourceMetric, engine.Batch{Metrics: req.Flatten()})
}

func (h *Handler) IngestLogs(c *gin.Context) {
	if !AuthMiddleware(c) {
		return
	}
	var req LogPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("failed to parse log batch")
		c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_PARAMETER", "message": "invalid JSON"}})
		return
	}
	if !h.claimBatch(c, req.BatchID) {
		return
	}
	h.run(c, model.DataSourceLog, engine.Batch{Logs: req.Logs})
}

func (h *Handler) IngestTraces(c *gin.Context) {
	if !AuthMiddleware(c) {
		return
	}
	var req TracePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("failed to parse trace batch")
		c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_PARAMETER", "message": "invalid JSON"}})
		return
	}
	if !h.claimBatch(c, req.BatchID) {
		return
	}
	h.run(c, model.DataSourceTrace, engine.Batch{Spans: req.Spans})
}

// claimBatch applies best-effort idempotency when the sender tagged the batch.
// Cache errors are ignored; evaluating a batch twice is harmless.
func (h *Handler) claimBatch(c *gin.Context, batchID string) bool {
	if batchID == "" {
		return true
	}
	fresh, err := h.cache.TryMarkSeen(c.Request.Context(), batchID)
	if err != nil {
		log.Error().Err(err).Str("batch_id", batchID).Msg("batch dedup check failed, proceeding")
		return true
	}
	if !fresh {
		log.Debug().Str("batch_id", batchID).Msg("duplicate batch ignored")
		c.JSON(http.StatusOK, map[string]any{"ok": true, "msg": "duplicate batch ignored"})
		return false
	}
	return true
}

func (h *Handler) run(c *gin.Context, source model.DataSource, batch engine.Batch) {
	stats, err := h.runner.RunCycle(c.Request.Context(), source, batch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": "INTERNAL_ERROR", "message": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, stats)
}
