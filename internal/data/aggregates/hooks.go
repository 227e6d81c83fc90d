package aggregates

import (
	"time"

	"github.com/yungbote/famspace-backend/internal/observability"
)

// WriteEvent describes one finished aggregate write. Status is "success" or the
// aggregate error code.
type WriteEvent struct {
	Op       string
	Status   string
	Duration time.Duration
}

// Hooks receives write telemetry. Implementations must be safe for concurrent use.
type Hooks interface {
	ObserveWrite(ev WriteEvent)
	IncConflict(op string)
	IncRetry(op string)
}

type noopHooks struct{}

func (noopHooks) ObserveWrite(WriteEvent) {}
func (noopHooks) IncConflict(string)      {}
func (noopHooks) IncRetry(string)         {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks reports writes to the process metrics registry.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{metrics: metrics}
}

func (h metricsHooks) ObserveWrite(ev WriteEvent) {
	h.metrics.ObserveGrowthWrite(ev.Op, ev.Status, ev.Duration)
}

func (h metricsHooks) IncConflict(op string) { h.metrics.IncGrowthConflict(op) }

func (h metricsHooks) IncRetry(op string) { h.metrics.IncGrowthRetry(op) }
