package levy

import (
	"context"
	"errors"
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

var scanNow = time.Date(2025, 3, 15, 11, 30, 0, 0, time.UTC)

type scanDeps struct {
	dir   *MockDirectory
	setup *MockSetupRepository
	txs   *MockTransactionRepository
	svc   *TraderIdentityService
}

func newScanDeps() scanDeps {
	d := scanDeps{
		dir:   new(MockDirectory),
		setup: new(MockSetupRepository),
		txs:   new(MockTransactionRepository),
	}
	d.svc = NewTraderIdentityService(TraderIdentityServiceConfig{
		Directory:       d.dir,
		SetupRepo:       d.setup,
		TransactionRepo: d.txs,
		PaymentBaseURL:  "https://levy.example.gov/",
		Clock:           fixedClock(scanNow),
	})
	return d
}

func activeSetupFor(t *testing.T, f fixture, amount int64) *levy.LevySetup {
	t.Helper()
	setup, err := levy.NewLevySetup(f.market.ID, f.trader.OccupancyType,
		levy.Rate{Amount: decimal.NewFromInt(amount), Period: levy.PeriodWeekly}, uuid.New(), scanNow.AddDate(0, -1, 0))
	require.NoError(t, err)
	return setup
}

func TestTraderIdentityService_ValidateTraderQRCode(t *testing.T) {
	ctx := context.Background()

	t.Run("trader without history is up to date", func(t *testing.T) {
		f := newFixture()
		d := newScanDeps()
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.dir.On("FindOfficerByID", mock.Anything, f.officer.ID).Return(f.officer, nil)
		d.dir.On("FindMarketByID", mock.Anything, f.market.ID).Return(f.market, nil)
		d.setup.On("FindActive", mock.Anything, f.market.ID, levy.OccupancyShop).Return(activeSetupFor(t, f, 500), nil)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).Return([]*levy.LevyTransaction{}, nil)

		summary, err := d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{
			TraderID:         f.trader.ID,
			OfficerID:        f.officer.ID,
			ExpectedMarketID: &f.market.ID,
		})

		require.NoError(t, err)
		assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, "Up to Date", summary.Breakdown.Status)
		assert.Equal(t, 0, summary.Breakdown.OverdueDays)
		assert.Equal(t, 1, summary.BuildingTypeCount)
		assert.Equal(t, "Adaeze Stores", summary.DisplayName)
		assert.Equal(t, "Shop", summary.OccupancyLabel)
		assert.Equal(t, "7 days - 500.00", summary.PaymentFrequencyLabel)
		assert.Equal(t, "Oja Oba", summary.MarketName)
		assert.True(t, summary.Breakdown.ByOccupancy.Shop.Equal(decimal.NewFromInt(500)))
		assert.True(t, summary.Breakdown.ByOccupancy.Kiosk.IsZero())
		assert.Equal(t, "https://levy.example.gov/api/v1/levy/traders/"+f.trader.ID.String()+"/payments", summary.PaymentSubmissionURL)
	})

	t.Run("pending arrears are added to the current amount", func(t *testing.T) {
		f := newFixture()
		d := newScanDeps()
		pending := func(daysAgo int) *levy.LevyTransaction {
			return &levy.LevyTransaction{
				TraderID:    f.trader.ID,
				Rate:        levy.Rate{Amount: decimal.NewFromInt(300), Period: levy.PeriodWeekly},
				Status:      levy.TransactionStatusPending,
				PaymentDate: scanNow.AddDate(0, 0, -daysAgo),
			}
		}
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.dir.On("FindOfficerByID", mock.Anything, f.officer.ID).Return(f.officer, nil)
		d.dir.On("FindMarketByID", mock.Anything, f.market.ID).Return(f.market, nil)
		d.setup.On("FindActive", mock.Anything, f.market.ID, levy.OccupancyShop).Return(activeSetupFor(t, f, 500), nil)
		d.txs.On("FindByTrader", mock.Anything, f.trader.ID, levy.TransactionFilter{}).
			Return([]*levy.LevyTransaction{pending(1), pending(8)}, nil)

		summary, err := d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{TraderID: f.trader.ID, OfficerID: f.officer.ID})

		require.NoError(t, err)
		assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(1100)), summary.TotalAmount.String())
		assert.Equal(t, "Pending", summary.Breakdown.Status)
	})

	t.Run("claimed market mismatch conflicts", func(t *testing.T) {
		f := newFixture()
		d := newScanDeps()
		other := uuid.New()
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)

		_, err := d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{
			TraderID:         f.trader.ID,
			OfficerID:        f.officer.ID,
			ExpectedMarketID: &other,
		})

		assert.True(t, errors.Is(err, shared.ErrConflict))
		d.dir.AssertNotCalled(t, "FindOfficerByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown trader", func(t *testing.T) {
		d := newScanDeps()
		id := uuid.New()
		d.dir.On("FindTraderByID", mock.Anything, id).Return(nil, nil)

		_, err := d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{TraderID: id, OfficerID: uuid.New()})

		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("scanner must be an active officer", func(t *testing.T) {
		f := newFixture()
		d := newScanDeps()
		inactive := &market.Officer{ID: uuid.New(), MarketID: f.market.ID, Active: false}
		stranger := uuid.New()
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.dir.On("FindOfficerByID", mock.Anything, inactive.ID).Return(inactive, nil)
		d.dir.On("FindOfficerByID", mock.Anything, stranger).Return(nil, nil)

		_, err := d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{TraderID: f.trader.ID, OfficerID: inactive.ID})
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))

		_, err = d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{TraderID: f.trader.ID, OfficerID: stranger})
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
	})

	t.Run("no active setup is a configuration error", func(t *testing.T) {
		f := newFixture()
		d := newScanDeps()
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.dir.On("FindOfficerByID", mock.Anything, f.officer.ID).Return(f.officer, nil)
		d.dir.On("FindMarketByID", mock.Anything, f.market.ID).Return(f.market, nil)
		d.setup.On("FindActive", mock.Anything, f.market.ID, levy.OccupancyShop).Return(nil, nil)

		_, err := d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{TraderID: f.trader.ID, OfficerID: f.officer.ID})

		assert.True(t, errors.Is(err, shared.ErrConfiguration))
		assert.Contains(t, err.Error(), "Shop")
	})

	t.Run("a panic in a collaborator surfaces as unexpected", func(t *testing.T) {
		f := newFixture()
		d := newScanDeps()
		d.dir.On("FindTraderByID", mock.Anything, f.trader.ID).Return(f.trader, nil)
		d.dir.On("FindOfficerByID", mock.Anything, f.officer.ID).Return(f.officer, nil)
		d.dir.On("FindMarketByID", mock.Anything, f.market.ID).Return(f.market, nil)
		d.setup.On("FindActive", mock.Anything, f.market.ID, levy.OccupancyShop).Panic("nil map")

		summary, err := d.svc.ValidateTraderQRCode(ctx, ValidateTraderQRRequest{TraderID: f.trader.ID, OfficerID: f.officer.ID})

		assert.Nil(t, summary)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, shared.CodeUnexpected, de.Code)
		assert.NotEmpty(t, de.CorrelationID)
	})
}
