package ingest

import "github.com/gin-gonic/gin"

func RegisterIngestRoutes(r *gin.Engine, h *Handler) {
	r.POST("/v1/ingest/metrics", h.IngestMetrics)
	r.POST("/v1/ingest/logs", h.IngestLogs)
	r.POST("/v1/ingest/traces", h.IngestTraces)
}
