package ingest

import (
	"github.com/argussight/argus/internal/alerting/service/engine"
	"github.com/prometheus/common/model"
)

// MetricPayload is the body of POST /v1/ingest/metrics. Metrics may arrive as
// a flat name/value map, as Prometheus samples, or both; samples are folded
// into the map by metric name with last-write-wins.
type MetricPayload struct {
	BatchID string             `json:"batch_id,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Samples []model.Sample     `json:"samples,omitempty"`
}

// Flatten merges explicit metrics and Prometheus samples into one map.
func (p *MetricPayload) Flatten() map[string]float64 {
	out := make(map[string]float64, len(p.Metrics)+len(p.Samples))
	for name, value := range p.Metrics {
		out[name] = value
	}
	for _, s := range p.Samples {
		name := string(s.Metric[model.MetricNameLabel])
		if name == "" {
			continue
		}
		out[name] = float64(s.Value)
	}
	return out
}

// LogPayload is the body of POST /v1/ingest/logs.
type LogPayload struct {
	BatchID string             `json:"batch_id,omitempty"`
	Logs    []engine.LogRecord `json:"logs"`
}

// TracePayload is the body of POST /v1/ingest/traces.
type TracePayload struct {
	BatchID string              `json:"batch_id,omitempty"`
	Spans   []engine.SpanRecord `json:"spans"`
}
