package levy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SetupService manages levy rate templates
type SetupService struct {
	setupRepo levy.LevySetupRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	boundary  boundary
}

// SetupServiceConfig holds dependencies for the SetupService
type SetupServiceConfig struct {
	SetupRepo      levy.LevySetupRepository
	EventPublisher shared.EventPublisher
	Metrics        *telemetry.LevyMetrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewSetupService creates a new SetupService
func NewSetupService(cfg SetupServiceConfig) *SetupService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SetupService{
		setupRepo: cfg.SetupRepo,
		publisher: cfg.EventPublisher,
		logger:    log,
		now:       clock,
		boundary:  boundary{logger: log, metrics: cfg.Metrics},
	}
}

// ConfigureLevySetup creates the active rate for a (market, occupancy) pair.
// Fails with CONFLICT when the pair already has an active setup.
func (s *SetupService) ConfigureLevySetup(ctx context.Context, req ConfigureLevySetupRequest) (resp *LevySetupResponse, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_setup", "configure")
	defer s.boundary.finish(ctx, span, "levy_setup.configure", started, &err)

	occupancy, ok := levy.ParseOccupancyType(req.OccupancyType)
	if !ok {
		return nil, shared.NewValidationError("Invalid occupancy type: " + req.OccupancyType)
	}
	period, ok := levy.ParsePaymentPeriod(req.Period)
	if !ok {
		return nil, shared.NewValidationError("Invalid payment period: " + req.Period)
	}

	setup, err := levy.NewLevySetup(req.MarketID, occupancy, levy.Rate{Amount: req.Amount, Period: period}, req.OwnerID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.setupRepo.CreateIfNoActive(ctx, setup); err != nil {
		return nil, err
	}

	s.logger.Info("Levy setup configured",
		zap.String("setup_id", setup.ID.String()),
		zap.String("market_id", setup.MarketID.String()),
		zap.String("occupancy_type", occupancy.String()),
		zap.String("amount", setup.Rate.Amount.String()),
		zap.String("period", period.String()),
	)
	publish(ctx, s.publisher, s.logger, setup)

	out := ToLevySetupResponse(setup)
	return &out, nil
}

// UpdateLevySetup changes only the supplied fields. Moving a setup to another
// market re-checks the one-active-setup rule for the destination.
func (s *SetupService) UpdateLevySetup(ctx context.Context, setupID uuid.UUID, req UpdateLevySetupRequest) (resp *LevySetupResponse, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_setup", "update")
	defer s.boundary.finish(ctx, span, "levy_setup.update", started, &err)

	setup, err := s.setupRepo.FindByID(ctx, setupID)
	if err != nil {
		return nil, err
	}
	if setup == nil {
		return nil, shared.NewNotFoundError("Levy setup")
	}

	changes := levy.SetupChanges{Amount: req.Amount, MarketID: req.MarketID}
	if req.Period != nil {
		period, ok := levy.ParsePaymentPeriod(*req.Period)
		if !ok {
			return nil, shared.NewValidationError("Invalid payment period: " + *req.Period)
		}
		changes.Period = &period
	}

	marketChanged, err := setup.ApplyChanges(changes, req.ActorID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.setupRepo.Update(ctx, setup, marketChanged && setup.Active); err != nil {
		return nil, err
	}

	s.logger.Info("Levy setup updated",
		zap.String("setup_id", setup.ID.String()),
		zap.Bool("market_changed", marketChanged),
		zap.Int("version", setup.Version),
	)
	publish(ctx, s.publisher, s.logger, setup)

	out := ToLevySetupResponse(setup)
	return &out, nil
}

// GetActiveLevySetup returns the active setup for a pair. When duplicates
// exist the most recently created one wins.
func (s *SetupService) GetActiveLevySetup(ctx context.Context, marketID uuid.UUID, occupancyType string) (resp *LevySetupResponse, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_setup", "get_active")
	defer s.boundary.finish(ctx, span, "levy_setup.get_active", started, &err)

	occupancy, ok := levy.ParseOccupancyType(occupancyType)
	if !ok {
		return nil, shared.NewValidationError("Invalid occupancy type: " + occupancyType)
	}

	setup, err := s.setupRepo.FindActive(ctx, marketID, occupancy)
	if err != nil {
		return nil, err
	}
	if setup == nil {
		return nil, shared.NewNotFoundError("Active levy setup")
	}

	out := ToLevySetupResponse(setup)
	return &out, nil
}

// DeactivateLevySetup retires a setup so a new rate can be configured
func (s *SetupService) DeactivateLevySetup(ctx context.Context, setupID, actorID uuid.UUID) (resp *LevySetupResponse, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_setup", "deactivate")
	defer s.boundary.finish(ctx, span, "levy_setup.deactivate", started, &err)

	setup, err := s.setupRepo.FindByID(ctx, setupID)
	if err != nil {
		return nil, err
	}
	if setup == nil {
		return nil, shared.NewNotFoundError("Levy setup")
	}

	if err := setup.Deactivate(actorID, s.now()); err != nil {
		return nil, err
	}
	if err := s.setupRepo.Update(ctx, setup, false); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, setup)

	out := ToLevySetupResponse(setup)
	return &out, nil
}

// ListMarketLevySetups returns the active setups of a market, newest first
func (s *SetupService) ListMarketLevySetups(ctx context.Context, marketID uuid.UUID) (resp []LevySetupResponse, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_setup", "list")
	defer s.boundary.finish(ctx, span, "levy_setup.list", started, &err)

	setups, err := s.setupRepo.FindActiveByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	resp = make([]LevySetupResponse, 0, len(setups))
	for _, setup := range setups {
		resp = append(resp, ToLevySetupResponse(setup))
	}
	return resp, nil
}
