package levy

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var payNow = time.Date(2025, 3, 15, 14, 5, 0, 0, time.UTC)

type payDeps struct {
	dir   *MockDirectory
	txs   *MockTransactionRepository
	store *memoryIdempotencyStore
	pub   *recordingPublisher
	svc   *PaymentService
}

func newPayDeps() payDeps {
	return newPayDepsWith(nil)
}

func newPayDepsWith(dedupe *shared.IdempotencyConfig) payDeps {
	d := payDeps{
		dir:   new(MockDirectory),
		txs:   new(MockTransactionRepository),
		store: newMemoryIdempotencyStore(),
		pub:   &recordingPublisher{},
	}
	d.svc = NewPaymentService(PaymentServiceConfig{
		Directory:        d.dir,
		TransactionRepo:  d.txs,
		References:       levy.NewReferenceGenerator("MLV", nil),
		IdempotencyStore:  d.store,
		IdempotencyConfig: dedupe,
		EventPublisher:    d.pub,
		Clock:             fixedClock(payNow),
	})
	return d
}

func (d payDeps) expectParties(f fixture) {
	d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
	d.dir.On("FindOfficerByID", mock.Anything, f.officer.ID).Return(f.officer, nil)
}

func cashPayment(f fixture) ProcessPaymentRequest {
	return ProcessPaymentRequest{
		TraderID:    f.trader.ID,
		CollectorID: f.officer.ID,
		Amount:      decimal.NewFromInt(500),
		Period:      "WEEKLY",
		Method:      "CASH",
	}
}

func strPtr(s string) *string { return &s }

func TestPaymentService_ProcessTraderLevyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("records a paid collection with a generated reference", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)
		var saved *levy.LevyTransaction
		d.txs.On("Create", mock.Anything, mock.AnythingOfType("*levy.LevyTransaction")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*levy.LevyTransaction) }).
			Return(nil)

		rec, err := d.svc.ProcessTraderLevyPayment(ctx, cashPayment(f))

		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, levy.TransactionStatusPaid, saved.Status)
		assert.Equal(t, "PAID", rec.Status)
		assert.Regexp(t, regexp.MustCompile(`^MLV-20250315-[0-9a-f]{8}$`), rec.TransactionReference)
		assert.Equal(t, payNow, rec.PaymentDate)
		require.NotNil(t, rec.CollectionDate)
		assert.Equal(t, payNow, *rec.CollectionDate)
		assert.Equal(t, f.market.ID, rec.MarketID)
		assert.Equal(t, "SHOP", rec.OccupancyType)
		assert.True(t, rec.WasDue)
		assert.False(t, rec.Replayed)
		assert.Equal(t, []string{levy.EventTypeLevyPaymentRecorded}, d.pub.types())
	})

	t.Run("payment before the due date is still accepted", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		paidYesterday := &levy.LevyTransaction{
			TraderID:    f.trader.ID,
			Rate:        levy.Rate{Amount: decimal.NewFromInt(500), Period: levy.PeriodWeekly},
			Status:      levy.TransactionStatusPaid,
			PaymentDate: payNow.AddDate(0, 0, -1),
		}
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{paidYesterday}, nil)
		d.txs.On("Create", mock.Anything, mock.Anything).Return(nil)

		rec, err := d.svc.ProcessTraderLevyPayment(ctx, cashPayment(f))

		require.NoError(t, err)
		assert.False(t, rec.WasDue)
		require.NotNil(t, rec.DueDate)
		assert.Equal(t, 2025, rec.DueDate.Year())
		assert.Equal(t, time.March, rec.DueDate.Month())
		assert.Equal(t, 21, rec.DueDate.Day())
	})

	t.Run("supplied reference is kept", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)
		d.txs.On("Create", mock.Anything, mock.Anything).Return(nil)

		req := cashPayment(f)
		req.TransactionReference = strPtr(" POS-99812 ")
		rec, err := d.svc.ProcessTraderLevyPayment(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, "POS-99812", rec.TransactionReference)
	})

	t.Run("officer from another market is forbidden", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		outsider := &market.Officer{ID: uuid.New(), MarketID: uuid.New(), Active: true}
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.dir.On("FindOfficerByID", mock.Anything, outsider.ID).Return(outsider, nil)

		req := cashPayment(f)
		req.CollectorID = outsider.ID
		rec, err := d.svc.ProcessTraderLevyPayment(ctx, req)

		assert.Nil(t, rec)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		d.txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown trader and officer", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		missingTrader := uuid.New()
		missingOfficer := uuid.New()
		d.dir.On("FindTraderByID", mock.Anything, missingTrader).Return(nil, nil)
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.dir.On("FindOfficerByID", mock.Anything, missingOfficer).Return(nil, nil)

		req := cashPayment(f)
		req.TraderID = missingTrader
		_, err := d.svc.ProcessTraderLevyPayment(ctx, req)
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		req = cashPayment(f)
		req.CollectorID = missingOfficer
		_, err = d.svc.ProcessTraderLevyPayment(ctx, req)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("malformed input is a validation failure", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)

		req := cashPayment(f)
		req.Method = "CHEQUE"
		_, err := d.svc.ProcessTraderLevyPayment(ctx, req)
		assert.True(t, errors.Is(err, shared.ErrValidation))

		req = cashPayment(f)
		req.Amount = decimal.NewFromInt(-5)
		_, err = d.svc.ProcessTraderLevyPayment(ctx, req)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("event publish failure does not fail the payment", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.pub.err = errors.New("bus stopped")
		d.expectParties(f)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)
		d.txs.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := d.svc.ProcessTraderLevyPayment(ctx, cashPayment(f))

		assert.NoError(t, err)
	})
}

func TestPaymentService_Idempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("resubmission with the same request id replays", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)

		var saved *levy.LevyTransaction
		d.txs.On("FindByIdempotencyKey", mock.Anything, mock.Anything).
			Return(nil, nil).Once()
		d.txs.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*levy.LevyTransaction) }).
			Return(nil).Once()

		req := cashPayment(f)
		req.ClientRequestID = strPtr("device-7:0001")
		first, err := d.svc.ProcessTraderLevyPayment(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.NotEmpty(t, saved.IdempotencyKey)

		d.txs.On("FindByIdempotencyKey", mock.Anything, saved.IdempotencyKey).Return(saved, nil)
		second, err := d.svc.ProcessTraderLevyPayment(ctx, req)

		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.TransactionReference, second.TransactionReference)
		d.txs.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("different collectors do not share a key", func(t *testing.T) {
		f := newFixture()
		a := cashPayment(f)
		a.ClientRequestID = strPtr("r-1")
		b := a
		b.CollectorID = uuid.New()

		assert.NotEqual(t, idempotencyKey(a), idempotencyKey(b))
		assert.Empty(t, idempotencyKey(cashPayment(f)))
	})

	t.Run("in-flight key conflicts", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		req := cashPayment(f)
		req.ClientRequestID = strPtr("r-2")
		key := idempotencyKey(req)
		ok, err := d.store.Reserve(ctx, key, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		d.txs.On("FindByIdempotencyKey", mock.Anything, key).Return(nil, nil)

		_, err = d.svc.ProcessTraderLevyPayment(ctx, req)

		assert.True(t, errors.Is(err, shared.ErrConflict))
		d.txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("failed write releases the key for a retry", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		req := cashPayment(f)
		req.ClientRequestID = strPtr("r-3")
		key := idempotencyKey(req)
		d.txs.On("FindByIdempotencyKey", mock.Anything, key).Return(nil, nil)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)
		d.txs.On("Create", mock.Anything, mock.Anything).Return(errors.New("deadlock detected")).Once()
		d.txs.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := d.svc.ProcessTraderLevyPayment(ctx, req)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, shared.CodeUnexpected, de.Code)

		rec, err := d.svc.ProcessTraderLevyPayment(ctx, req)
		require.NoError(t, err)
		assert.False(t, rec.Replayed)

		result, found, err := d.store.Result(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, rec.ID.String(), result)
	})

	t.Run("concurrent submissions record once", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		req := cashPayment(f)
		req.ClientRequestID = strPtr("r-4")
		d.txs.On("FindByIdempotencyKey", mock.Anything, mock.Anything).Return(nil, nil)
		d.txs.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)
		d.txs.On("Create", mock.Anything, mock.Anything).Return(nil)

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = d.svc.ProcessTraderLevyPayment(ctx, req)
			}(i)
		}
		wg.Wait()

		d.txs.AssertNumberOfCalls(t, "Create", 1)
		for _, err := range errs {
			if err != nil {
				assert.True(t, errors.Is(err, shared.ErrConflict))
			}
		}
	})

	t.Run("late retry replays from the stored row", func(t *testing.T) {
		f := newFixture()
		d := newPayDeps()
		d.expectParties(f)
		req := cashPayment(f)
		req.ClientRequestID = strPtr("r-5")
		key := idempotencyKey(req)
		// Recorded long ago: the store entry has expired but the row keeps the key.
		old := &levy.LevyTransaction{
			TraderID:       f.trader.ID,
			Rate:           levy.Rate{Amount: decimal.NewFromInt(500), Period: levy.PeriodWeekly},
			Status:         levy.TransactionStatusPaid,
			PaymentDate:    payNow.AddDate(0, 0, -30),
			IdempotencyKey: key,
		}
		old.ID = uuid.New()
		d.txs.On("FindByIdempotencyKey", mock.Anything, key).Return(old, nil)

		rec, err := d.svc.ProcessTraderLevyPayment(ctx, req)

		require.NoError(t, err)
		assert.True(t, rec.Replayed)
		assert.Equal(t, old.ID, rec.ID)
		d.txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		_, found, err := d.store.Result(ctx, key)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("disabled deduplication records every submission", func(t *testing.T) {
		f := newFixture()
		d := newPayDepsWith(&shared.IdempotencyConfig{Enabled: false, TTL: time.Hour})
		d.expectParties(f)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)
		var keys []string
		d.txs.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { keys = append(keys, args.Get(1).(*levy.LevyTransaction).IdempotencyKey) }).
			Return(nil)

		req := cashPayment(f)
		req.ClientRequestID = strPtr("r-6")
		first, err := d.svc.ProcessTraderLevyPayment(ctx, req)
		require.NoError(t, err)
		second, err := d.svc.ProcessTraderLevyPayment(ctx, req)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.False(t, second.Replayed)
		assert.Equal(t, []string{"", ""}, keys)
		d.txs.AssertNotCalled(t, "FindByIdempotencyKey", mock.Anything, mock.Anything)
		_, found, err := d.store.Result(ctx, idempotencyKey(req))
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestPaymentService_ListTraderTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	t.Run("passes the range through", func(t *testing.T) {
		d := newPayDeps()
		from := payNow.AddDate(0, -1, 0)
		to := payNow
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{From: &from, To: &to}).
			Return([]*levy.LevyTransaction{{
				TraderID:    f.trader.ID,
				Rate:        levy.Rate{Amount: decimal.NewFromInt(500), Period: levy.PeriodWeekly},
				Status:      levy.TransactionStatusPaid,
				PaymentDate: payNow.AddDate(0, 0, -3),
			}}, nil)

		records, err := d.svc.ListTraderTransactions(ctx, f.trader.ID, &from, &to)

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "PAID", records[0].Status)
	})

	t.Run("inverted range is rejected", func(t *testing.T) {
		d := newPayDeps()
		from := payNow
		to := payNow.AddDate(0, 0, -1)

		_, err := d.svc.ListTraderTransactions(ctx, f.trader.ID, &from, &to)

		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}
