package levy

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TINService issues trader identification numbers for a market
type TINService struct {
	directory market.Directory
	generator *levy.TINGenerator
	logger    *zap.Logger
	boundary  boundary
}

// TINServiceConfig holds dependencies for the TINService
type TINServiceConfig struct {
	Directory   market.Directory
	Source      levy.IDSource
	MaxAttempts int
	Logger      *zap.Logger
}

// NewTINService creates a new TINService
func NewTINService(cfg TINServiceConfig) *TINService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var exists levy.TINExistsFunc
	if cfg.Directory != nil {
		exists = cfg.Directory.TINExists
	}
	return &TINService{
		directory: cfg.Directory,
		generator: levy.NewTINGenerator(cfg.Source, exists, cfg.MaxAttempts),
		logger:    log,
		boundary:  boundary{logger: log},
	}
}

// GenerateTIN returns an unused TIN for a new trader in the market
func (s *TINService) GenerateTIN(ctx context.Context, marketID uuid.UUID) (tin string, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_tin", "generate")
	defer s.boundary.finish(ctx, span, "levy_tin.generate", started, &err)

	mkt, err := s.directory.FindMarketByID(ctx, marketID)
	if err != nil {
		return "", err
	}
	if mkt == nil {
		return "", shared.NewNotFoundError("Market")
	}

	tin, err = s.generator.Generate(ctx, mkt.State, mkt.LocalGovernment)
	if err != nil {
		return "", err
	}

	s.logger.Debug("TIN generated",
		zap.String("market_id", marketID.String()),
		zap.String("tin", tin),
	)
	return tin, nil
}
