package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	levyapp "github.com/marketlevy/backend/internal/application/levy"
	"github.com/marketlevy/backend/internal/domain/audit"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/infrastructure/auth"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"github.com/marketlevy/backend/internal/interfaces/http/dto"
	"github.com/marketlevy/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type MockSetupService struct{ mock.Mock }

func (m *MockSetupService) ConfigureLevySetup(ctx context.Context, req levyapp.ConfigureLevySetupRequest) (*levyapp.LevySetupResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*levyapp.LevySetupResponse)
	return resp, args.Error(1)
}

func (m *MockSetupService) UpdateLevySetup(ctx context.Context, setupID uuid.UUID, req levyapp.UpdateLevySetupRequest) (*levyapp.LevySetupResponse, error) {
	args := m.Called(ctx, setupID, req)
	resp, _ := args.Get(0).(*levyapp.LevySetupResponse)
	return resp, args.Error(1)
}

func (m *MockSetupService) GetActiveLevySetup(ctx context.Context, marketID uuid.UUID, occupancyType string) (*levyapp.LevySetupResponse, error) {
	args := m.Called(ctx, marketID, occupancyType)
	resp, _ := args.Get(0).(*levyapp.LevySetupResponse)
	return resp, args.Error(1)
}

func (m *MockSetupService) DeactivateLevySetup(ctx context.Context, setupID, actorID uuid.UUID) (*levyapp.LevySetupResponse, error) {
	args := m.Called(ctx, setupID, actorID)
	resp, _ := args.Get(0).(*levyapp.LevySetupResponse)
	return resp, args.Error(1)
}

func (m *MockSetupService) ListMarketLevySetups(ctx context.Context, marketID uuid.UUID) ([]levyapp.LevySetupResponse, error) {
	args := m.Called(ctx, marketID)
	resp, _ := args.Get(0).([]levyapp.LevySetupResponse)
	return resp, args.Error(1)
}

type MockIdentityService struct{ mock.Mock }

func (m *MockIdentityService) ValidateTraderQRCode(ctx context.Context, req levyapp.ValidateTraderQRRequest) (*levyapp.TraderPaymentSummary, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*levyapp.TraderPaymentSummary)
	return resp, args.Error(1)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) ProcessTraderLevyPayment(ctx context.Context, req levyapp.ProcessPaymentRequest) (*levyapp.TransactionRecord, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*levyapp.TransactionRecord)
	return resp, args.Error(1)
}

func (m *MockPaymentService) ListTraderTransactions(ctx context.Context, traderID uuid.UUID, from, to *time.Time) ([]levyapp.TransactionRecord, error) {
	args := m.Called(ctx, traderID, from, to)
	resp, _ := args.Get(0).([]levyapp.TransactionRecord)
	return resp, args.Error(1)
}

type MockOfficerLookup struct{ mock.Mock }

func (m *MockOfficerLookup) FindOfficerByUserID(ctx context.Context, userID uuid.UUID) (*market.Officer, error) {
	args := m.Called(ctx, userID)
	resp, _ := args.Get(0).(*market.Officer)
	return resp, args.Error(1)
}

type MockQRCodeService struct{ mock.Mock }

func (m *MockQRCodeService) RenderTraderQR(ctx context.Context, traderID uuid.UUID) (*levyapp.TraderQRCode, error) {
	args := m.Called(ctx, traderID)
	resp, _ := args.Get(0).(*levyapp.TraderQRCode)
	return resp, args.Error(1)
}

type MockTINService struct{ mock.Mock }

func (m *MockTINService) GenerateTIN(ctx context.Context, marketID uuid.UUID) (string, error) {
	args := m.Called(ctx, marketID)
	return args.String(0), args.Error(1)
}

type MockAuditReader struct{ mock.Mock }

func (m *MockAuditReader) FindByMarket(ctx context.Context, marketID uuid.UUID, limit int) ([]audit.Entry, error) {
	args := m.Called(ctx, marketID, limit)
	resp, _ := args.Get(0).([]audit.Entry)
	return resp, args.Error(1)
}

// withActor stands in for JWTAuth: it puts claims for actor on the context
func withActor(actor uuid.UUID, roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logger.GinRequestIDKey, "req-test")
		if actor != uuid.Nil {
			c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: actor.String(), Roles: roles})
		}
		c.Next()
	}
}

func newTestEngine(actor uuid.UUID) *gin.Engine {
	engine := gin.New()
	engine.Use(withActor(actor))
	return engine
}

func perform(engine *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
