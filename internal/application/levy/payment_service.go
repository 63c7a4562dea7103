package levy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentService records levy collections made by field officers
type PaymentService struct {
	directory   market.Directory
	txRepo      levy.LevyTransactionRepository
	references  *levy.ReferenceGenerator
	idempotency shared.IdempotencyStore
	dedupe      shared.IdempotencyConfig
	publisher   shared.EventPublisher
	metrics     *telemetry.LevyMetrics
	logger      *zap.Logger
	now         func() time.Time
	boundary    boundary
}

// PaymentServiceConfig holds dependencies for the PaymentService
type PaymentServiceConfig struct {
	Directory       market.Directory
	TransactionRepo levy.LevyTransactionRepository
	References      *levy.ReferenceGenerator
	// IdempotencyStore is optional. Without it deduplication relies on the
	// key stored on each transaction row.
	IdempotencyStore shared.IdempotencyStore
	// IdempotencyConfig defaults to shared.DefaultIdempotencyConfig when nil
	IdempotencyConfig *shared.IdempotencyConfig
	EventPublisher    shared.EventPublisher
	Metrics           *telemetry.LevyMetrics
	Logger            *zap.Logger
	Clock             func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	refs := cfg.References
	if refs == nil {
		refs = levy.NewReferenceGenerator("", nil)
	}
	dedupe := shared.DefaultIdempotencyConfig()
	if cfg.IdempotencyConfig != nil {
		dedupe = *cfg.IdempotencyConfig
	}
	if dedupe.TTL <= 0 {
		dedupe.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &PaymentService{
		directory:   cfg.Directory,
		txRepo:      cfg.TransactionRepo,
		references:  refs,
		idempotency: cfg.IdempotencyStore,
		dedupe:      dedupe,
		publisher:   cfg.EventPublisher,
		metrics:     cfg.Metrics,
		logger:      log,
		now:         clock,
		boundary:    boundary{logger: log, metrics: cfg.Metrics},
	}
}

// ProcessTraderLevyPayment records a paid collection. The collecting officer
// must belong to the trader's market. Whether the levy was actually due is
// reported but never blocks the payment.
func (s *PaymentService) ProcessTraderLevyPayment(ctx context.Context, req ProcessPaymentRequest) (record *TransactionRecord, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_payment", "process")
	defer s.recordOutcome(ctx, req, &record, &err)
	defer s.boundary.finish(ctx, span, "levy_payment.process", started, &err)

	period, ok := levy.ParsePaymentPeriod(req.Period)
	if !ok {
		return nil, shared.NewValidationError("Invalid payment period: " + req.Period)
	}
	method, ok := levy.ParsePaymentMethod(req.Method)
	if !ok {
		return nil, shared.NewValidationError("Invalid payment method: " + req.Method)
	}

	trader, err := s.directory.FindTraderByID(ctx, req.TraderID)
	if err != nil {
		return nil, err
	}
	if trader == nil {
		return nil, shared.NewNotFoundError("Trader")
	}

	officer, err := s.directory.FindOfficerByID(ctx, req.CollectorID)
	if err != nil {
		return nil, err
	}
	if officer == nil {
		return nil, shared.NewNotFoundError("Collection officer")
	}

	if !officer.CanCollectFrom(trader) {
		return nil, shared.NewForbiddenError("Officer is not assigned to the trader's market")
	}

	key := ""
	if s.dedupe.Enabled {
		key = idempotencyKey(req)
	}
	if key != "" {
		replay, err := s.replay(ctx, key)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
		reserved, err := s.reserve(ctx, key)
		if err != nil {
			return nil, err
		}
		if !reserved {
			return nil, shared.NewConflictError("A payment with this request id is already being processed")
		}
	}

	record, err = s.record(ctx, req, trader, period, method, key)
	if err != nil {
		s.release(ctx, key)
		return nil, err
	}
	s.complete(ctx, key, record.ID)

	return record, nil
}

func (s *PaymentService) record(
	ctx context.Context,
	req ProcessPaymentRequest,
	trader *market.Trader,
	period levy.PaymentPeriod,
	method levy.PaymentMethod,
	key string,
) (*TransactionRecord, error) {
	now := s.now()

	history, err := s.txRepo.FindByTrader(ctx, trader.ID, levy.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	wasDue, dueDate := levy.IsPaymentDue(lastPaidDate(history), period, now)

	reference := ""
	if req.TransactionReference != nil {
		reference = strings.TrimSpace(*req.TransactionReference)
	}
	if reference == "" {
		reference, err = s.references.Generate(now)
		if err != nil {
			return nil, err
		}
	}

	tx, err := levy.RecordPaidTransaction(levy.PaidTransactionParams{
		TraderID:       trader.ID,
		MarketID:       trader.MarketID,
		CollectorID:    req.CollectorID,
		Rate:           levy.Rate{Amount: req.Amount, Period: period},
		Method:         method,
		OccupancyType:  trader.OccupancyType,
		Reference:      reference,
		DueDate:        &dueDate,
		Incentive:      req.Incentive,
		Notes:          deref(req.Notes),
		IdempotencyKey: key,
		QRPayload:      deref(req.QRPayload),
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("Levy payment recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("trader_id", trader.ID.String()),
		zap.String("collector_id", req.CollectorID.String()),
		zap.String("amount", tx.Rate.Amount.String()),
		zap.String("reference", tx.TransactionReference),
		zap.Bool("was_due", wasDue),
	)

	publish(ctx, s.publisher, s.logger, tx)

	out := ToTransactionRecord(tx)
	out.WasDue = wasDue
	return &out, nil
}

// ListTraderTransactions returns a trader's collections within an optional date range
func (s *PaymentService) ListTraderTransactions(ctx context.Context, traderID uuid.UUID, from, to *time.Time) (records []TransactionRecord, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_payment", "list")
	defer s.boundary.finish(ctx, span, "levy_payment.list", started, &err)

	if from != nil && to != nil && to.Before(*from) {
		return nil, shared.NewValidationError("Date range end must not be before its start")
	}

	trader, err := s.directory.FindTraderByID(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if trader == nil {
		return nil, shared.NewNotFoundError("Trader")
	}

	txs, err := s.txRepo.FindByTrader(ctx, traderID, levy.TransactionFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	records = make([]TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, ToTransactionRecord(tx))
	}
	return records, nil
}

// replay looks for an earlier payment under key, first on the durable
// transaction rows and then in the idempotency store. The row lookup has no
// time bound: the key stays unique on the row, so a late retry still replays.
func (s *PaymentService) replay(ctx context.Context, key string) (*TransactionRecord, error) {
	existing, err := s.txRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing == nil && s.idempotency != nil {
		result, found, err := s.idempotency.Result(ctx, key)
		if err != nil {
			return nil, err
		}
		if found && result == "" {
			return nil, shared.NewConflictError("A payment with this request id is already being processed")
		}
		if found {
			id, parseErr := uuid.Parse(result)
			if parseErr == nil {
				existing, err = s.txRepo.FindByID(ctx, id)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	if existing == nil {
		return nil, nil
	}

	s.logger.Info("Duplicate levy payment submission replayed",
		zap.String("transaction_id", existing.ID.String()),
		zap.String("idempotency_key", key),
	)
	out := ToTransactionRecord(existing)
	out.Replayed = true
	return &out, nil
}

func (s *PaymentService) reserve(ctx context.Context, key string) (bool, error) {
	if s.idempotency == nil {
		return true, nil
	}
	return s.idempotency.Reserve(ctx, key, s.dedupe.TTL)
}

func (s *PaymentService) complete(ctx context.Context, key string, id uuid.UUID) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Complete(ctx, key, id.String(), s.dedupe.TTL); err != nil {
		s.logger.Warn("Failed to record idempotency result",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) release(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) recordOutcome(ctx context.Context, req ProcessPaymentRequest, record **TransactionRecord, errp *error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	switch {
	case *errp != nil:
		outcome := telemetry.OutcomeRejected
		if de, ok := shared.AsDomainError(*errp); ok && de.Code == shared.CodeUnexpected {
			outcome = telemetry.OutcomeFailed
		}
		s.metrics.RecordPayment(ctx, method, outcome, req.Amount)
	case *record != nil && (*record).Replayed:
		s.metrics.RecordPayment(ctx, method, telemetry.OutcomeReplayed, req.Amount)
	default:
		s.metrics.RecordPayment(ctx, method, telemetry.OutcomeSuccess, req.Amount)
	}
}

// idempotencyKey derives the dedupe key from trader, collector and the
// client's request id. Empty when the client sent no request id.
func idempotencyKey(req ProcessPaymentRequest) string {
	if req.ClientRequestID == nil || strings.TrimSpace(*req.ClientRequestID) == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(req.TraderID.String() + "|" + req.CollectorID.String() + "|" + strings.TrimSpace(*req.ClientRequestID)))
	return hex.EncodeToString(sum[:])
}

func lastPaidDate(history []*levy.LevyTransaction) *time.Time {
	var last *time.Time
	for _, tx := range history {
		if tx == nil || !tx.IsPaid() {
			continue
		}
		if last == nil || tx.PaymentDate.After(*last) {
			paid := tx.PaymentDate
			last = &paid
		}
	}
	return last
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
