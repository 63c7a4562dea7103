package levy

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/audit"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockSetupRepository is a mock implementation of levy.LevySetupRepository
type MockSetupRepository struct {
	mock.Mock
}

func (m *MockSetupRepository) FindByID(ctx context.Context, id uuid.UUID) (*levy.LevySetup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*levy.LevySetup), args.Error(1)
}

func (m *MockSetupRepository) FindActive(ctx context.Context, marketID uuid.UUID, occupancy levy.OccupancyType) (*levy.LevySetup, error) {
	args := m.Called(ctx, marketID, occupancy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*levy.LevySetup), args.Error(1)
}

func (m *MockSetupRepository) FindActiveByMarket(ctx context.Context, marketID uuid.UUID) ([]*levy.LevySetup, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*levy.LevySetup), args.Error(1)
}

func (m *MockSetupRepository) CreateIfNoActive(ctx context.Context, setup *levy.LevySetup) error {
	args := m.Called(ctx, setup)
	return args.Error(0)
}

func (m *MockSetupRepository) Update(ctx context.Context, setup *levy.LevySetup, checkActiveConflict bool) error {
	args := m.Called(ctx, setup, checkActiveConflict)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of levy.LevyTransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*levy.LevyTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*levy.LevyTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByTrader(ctx context.Context, traderID uuid.UUID, filter levy.TransactionFilter) ([]*levy.LevyTransaction, error) {
	args := m.Called(ctx, traderID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*levy.LevyTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*levy.LevyTransaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*levy.LevyTransaction), args.Error(1)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *levy.LevyTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// MockDirectory is a mock implementation of market.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindMarketByID(ctx context.Context, id uuid.UUID) (*market.Market, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Market), args.Error(1)
}

func (m *MockDirectory) FindTraderByID(ctx context.Context, id uuid.UUID) (*market.Trader, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Trader), args.Error(1)
}

func (m *MockDirectory) FindTradersByMarket(ctx context.Context, marketID uuid.UUID) ([]*market.Trader, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*market.Trader), args.Error(1)
}

func (m *MockDirectory) TINExists(ctx context.Context, tin string) (bool, error) {
	args := m.Called(ctx, tin)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) FindOfficerByID(ctx context.Context, id uuid.UUID) (*market.Officer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Officer), args.Error(1)
}

func (m *MockDirectory) FindOfficerByUserID(ctx context.Context, userID uuid.UUID) (*market.Officer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Officer), args.Error(1)
}

func (m *MockDirectory) FindOfficersByMarket(ctx context.Context, marketID uuid.UUID) ([]*market.Officer, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*market.Officer), args.Error(1)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// memoryIdempotencyStore is a minimal map-backed shared.IdempotencyStore
type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]string
	pending map[string]bool
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{entries: map[string]string{}, pending: map[string]bool{}}
}

func (s *memoryIdempotencyStore) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok || s.pending[key] {
		return false, nil
	}
	s.pending[key] = true
	return true, nil
}

func (s *memoryIdempotencyStore) Complete(_ context.Context, key, result string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	s.entries[key] = result
	return nil
}

func (s *memoryIdempotencyStore) Result(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] {
		return "", true, nil
	}
	r, ok := s.entries[key]
	return r, ok, nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	return nil
}

func (s *memoryIdempotencyStore) Close() error { return nil }

// MockAuditSink is a mock implementation of audit.Sink
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// fixedClock returns a clock frozen at t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fixture is a market with one trader and one officer
type fixture struct {
	market  *market.Market
	trader  *market.Trader
	officer *market.Officer
}

func newFixture() fixture {
	mkt := &market.Market{ID: uuid.New(), Name: "Oja Oba", LocalGovernment: "Ibadan North", State: "Oyo"}
	return fixture{
		market: mkt,
		trader: &market.Trader{
			ID:            uuid.New(),
			MarketID:      mkt.ID,
			TIN:           "OYO/IBA/12345",
			BusinessName:  "Adaeze Stores",
			OccupancyType: levy.OccupancyShop,
		},
		officer: &market.Officer{ID: uuid.New(), MarketID: mkt.ID, UserID: uuid.New(), Active: true},
	}
}
