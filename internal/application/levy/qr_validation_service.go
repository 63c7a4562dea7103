package levy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TraderIdentityService turns a scanned trader QR token into an authorized
// payment summary. Only the trader id is trusted; every other field of the
// scanned payload is re-derived from storage.
type TraderIdentityService struct {
	directory      market.Directory
	setupRepo      levy.LevySetupRepository
	txRepo         levy.LevyTransactionRepository
	paymentBaseURL string
	metrics        *telemetry.LevyMetrics
	logger         *zap.Logger
	now            func() time.Time
	boundary       boundary
}

// TraderIdentityServiceConfig holds dependencies for the TraderIdentityService
type TraderIdentityServiceConfig struct {
	Directory       market.Directory
	SetupRepo       levy.LevySetupRepository
	TransactionRepo levy.LevyTransactionRepository
	// PaymentBaseURL prefixes the submission link returned to the scanner
	PaymentBaseURL string
	Metrics        *telemetry.LevyMetrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewTraderIdentityService creates a new TraderIdentityService
func NewTraderIdentityService(cfg TraderIdentityServiceConfig) *TraderIdentityService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TraderIdentityService{
		directory:      cfg.Directory,
		setupRepo:      cfg.SetupRepo,
		txRepo:         cfg.TransactionRepo,
		paymentBaseURL: strings.TrimRight(cfg.PaymentBaseURL, "/"),
		metrics:        cfg.Metrics,
		logger:         log,
		now:            clock,
		boundary:       boundary{logger: log, metrics: cfg.Metrics},
	}
}

// ValidateTraderQRCode authorizes the scanning officer and assembles what the
// trader owes.
func (s *TraderIdentityService) ValidateTraderQRCode(ctx context.Context, req ValidateTraderQRRequest) (summary *TraderPaymentSummary, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_scan", "validate")
	defer s.recordScan(ctx, &err)
	defer s.boundary.finish(ctx, span, "levy_scan.validate", started, &err)

	trader, err := s.directory.FindTraderByID(ctx, req.TraderID)
	if err != nil {
		return nil, err
	}
	if trader == nil {
		return nil, shared.NewNotFoundError("Trader")
	}

	if req.ExpectedMarketID != nil && *req.ExpectedMarketID != trader.MarketID {
		return nil, shared.NewConflictError("Scanned QR does not match claimed market")
	}

	officer, err := s.directory.FindOfficerByID(ctx, req.OfficerID)
	if err != nil {
		return nil, err
	}
	if officer == nil || !officer.Active {
		return nil, shared.NewUnauthorizedError("Scanner is not a recognized collection officer")
	}

	mkt, err := s.directory.FindMarketByID(ctx, trader.MarketID)
	if err != nil {
		return nil, err
	}
	if mkt == nil {
		return nil, shared.NewNotFoundError("Market")
	}

	setup, err := s.setupRepo.FindActive(ctx, trader.MarketID, trader.OccupancyType)
	if err != nil {
		return nil, err
	}
	if setup == nil {
		return nil, shared.NewConfigurationError(fmt.Sprintf("Levy not configured for %s in this market", trader.OccupancyType.Label()))
	}

	history, err := s.txRepo.FindByTrader(ctx, trader.ID, levy.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	breakdown := levy.CalculateBreakdown(trader.OccupancyType, setup, history, s.now())

	summary = &TraderPaymentSummary{
		TraderID:              trader.ID,
		DisplayName:           trader.DisplayName(),
		OccupancyLabel:        trader.OccupancyType.Label(),
		TIN:                   trader.TIN,
		PaymentFrequencyLabel: setup.Rate.FrequencyLabel(),
		TotalAmount:           breakdown.TotalAmount,
		MarketID:              mkt.ID,
		MarketName:            mkt.Name,
		LastPaymentDate:       breakdown.LastPaymentDate,
		BuildingTypeCount:     trader.BuildingTypeCount(),
		Breakdown:             toBreakdownResponse(breakdown),
		PaymentSubmissionURL:  s.paymentURL(trader),
	}

	s.logger.Debug("Trader QR validated",
		zap.String("trader_id", trader.ID.String()),
		zap.String("officer_id", officer.ID.String()),
		zap.String("status", string(breakdown.Status)),
		zap.String("total", breakdown.TotalAmount.String()),
	)

	return summary, nil
}

func (s *TraderIdentityService) paymentURL(trader *market.Trader) string {
	return fmt.Sprintf("%s/api/v1/levy/traders/%s/payments", s.paymentBaseURL, trader.ID)
}

func (s *TraderIdentityService) recordScan(ctx context.Context, errp *error) {
	if *errp == nil {
		s.metrics.RecordScan(ctx, telemetry.OutcomeSuccess, "")
		return
	}
	if de, ok := shared.AsDomainError(*errp); ok && de.Code != shared.CodeUnexpected {
		s.metrics.RecordScan(ctx, telemetry.OutcomeRejected, de.Code)
		return
	}
	s.metrics.RecordScan(ctx, telemetry.OutcomeFailed, shared.CodeUnexpected)
}
