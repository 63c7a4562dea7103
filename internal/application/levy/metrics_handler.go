package levy

import (
	"context"

	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/telemetry"
)

// MetricsHandler counts setup configuration changes from the event stream
type MetricsHandler struct {
	metrics *telemetry.LevyMetrics
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics *telemetry.LevyMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsHandler) EventTypes() []string {
	return []string{levy.EventTypeLevySetupConfigured}
}

// Handle records the configured rate
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if e, ok := event.(*levy.LevySetupConfiguredEvent); ok {
		h.metrics.RecordSetupConfigured(ctx, e.OccupancyType.String(), e.Period.String())
	}
	return nil
}
