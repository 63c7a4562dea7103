package levy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/audit"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditHandler writes an audit entry for every levy event.
// Sink failures are logged and swallowed so that a broken audit trail never
// fails the operation that produced the event.
type AuditHandler struct {
	sink   audit.Sink
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(sink audit.Sink, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{sink: sink, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditHandler) EventTypes() []string {
	return []string{
		levy.EventTypeLevySetupConfigured,
		levy.EventTypeLevySetupUpdated,
		levy.EventTypeLevySetupDeactivated,
		levy.EventTypeLevyPaymentRecorded,
	}
}

// Handle converts the event to an audit entry
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	entry, ok := auditEntryFor(event)
	if !ok {
		h.logger.Warn("No audit mapping for event",
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.sink.Record(ctx, entry); err != nil {
		h.logger.Error("Failed to write audit entry",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.Error(err),
		)
	}
	return nil
}

func auditEntryFor(event shared.DomainEvent) (audit.Entry, bool) {
	entry := audit.Entry{
		ID:         uuid.New(),
		ActorID:    event.ActorID(),
		MarketID:   event.MarketID(),
		RecordedAt: event.OccurredAt(),
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}

	switch e := event.(type) {
	case *levy.LevySetupConfiguredEvent:
		entry.Module = audit.ModuleLevySetup
		entry.Activity = "Levy setup configured"
		entry.Details = fmt.Sprintf("%s levy set to %s every %d days",
			e.OccupancyType.Label(), e.Amount.StringFixed(2), levy.ConvertPeriodToDays(e.Period))
	case *levy.LevySetupUpdatedEvent:
		entry.Module = audit.ModuleLevySetup
		entry.Activity = "Levy setup updated"
		entry.Details = fmt.Sprintf("Rate changed from %s/%s to %s/%s",
			e.PreviousAmount.StringFixed(2), e.PreviousPeriod, e.Amount.StringFixed(2), e.Period)
		if e.PreviousMarketID != e.MarketID() {
			entry.Details += fmt.Sprintf("; moved from market %s", e.PreviousMarketID)
		}
	case *levy.LevySetupDeactivatedEvent:
		entry.Module = audit.ModuleLevySetup
		entry.Activity = "Levy setup deactivated"
		entry.Details = fmt.Sprintf("%s levy setup %s deactivated", e.OccupancyType.Label(), e.SetupID)
	case *levy.LevyPaymentRecordedEvent:
		entry.Module = audit.ModuleLevyPayment
		entry.Activity = "Levy payment recorded"
		entry.Details = fmt.Sprintf("Collected %s by %s from trader %s (ref %s)",
			e.Amount.StringFixed(2), e.PaymentMethod, e.TraderID, e.TransactionReference)
	default:
		return audit.Entry{}, false
	}
	return entry, true
}
