package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
)

// MetricsSnapshot represents a snapshot of the service for dashboards
type MetricsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Backend   monitoring.MetricsSnapshot `json:"backend"`
	Sandbox   SandboxSummary             `json:"sandbox"`
	Generator string                     `json:"generator"`
	Summary   MetricsSummary             `json:"summary"`
}

// SandboxSummary counts tracked sandbox sessions by state
type SandboxSummary struct {
	Sessions int                   `json:"sessions"`
	States   map[sandbox.State]int `json:"states"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests     int64   `json:"totalRequests"`
	AverageLatencyMs  float64 `json:"averageLatencyMs"`
	ErrorRate         float64 `json:"errorRate"`
	ActiveConnections int64   `json:"activeConnections"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}

// snapshot gathers metrics from the collector and the sandbox registry
func (h *Handlers) snapshot() MetricsSnapshot {
	backend := h.stats.Snapshot()

	summary := MetricsSummary{
		TotalRequests:     backend.TotalRequests,
		AverageLatencyMs:  backend.AvgLatencyMs,
		ActiveConnections: backend.ActiveConnections,
		UptimeSeconds:     backend.UptimeSeconds,
	}
	if backend.TotalRequests > 0 {
		summary.ErrorRate = float64(backend.TotalErrors) / float64(backend.TotalRequests)
	}

	return MetricsSnapshot{
		Timestamp: time.Now(),
		Backend:   backend,
		Sandbox: SandboxSummary{
			Sessions: h.sandbox.Len(),
			States:   h.sandbox.Counts(),
		},
		Generator: h.generator.Provider(),
		Summary:   summary,
	}
}

// MetricsJSON returns the aggregated snapshot
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot())
}
