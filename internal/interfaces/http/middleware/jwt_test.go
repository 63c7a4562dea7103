package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/infrastructure/auth"
	"github.com/marketlevy/backend/internal/infrastructure/config"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"github.com/marketlevy/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRevocations simulates a revocation store that is down
type unreachableRevocations struct{}

func (unreachableRevocations) Revoked(context.Context, *auth.Claims) (bool, error) {
	return false, errors.New("redis down")
}

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{Secret: "middleware-test-secret-long-enough", Issuer: "market-identity"})
}

func issue(t *testing.T, svc *auth.JWTService, roles ...auth.Role) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := svc.IssueAccessToken(auth.IssueInput{UserID: userID, Roles: roles})
	require.NoError(t, err)
	return token, userID
}

func newAuthRouter(cfg JWTMiddlewareConfig, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuth(cfg))
	handlers := append(guards, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"actor":     GetActorID(c).String(),
			"ctx_actor": logger.GetActorID(c.Request.Context()),
		})
	})
	router.GET("/protected", handlers...)
	return router
}

func doGet(router http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	svc := newTestJWT()
	router := newAuthRouter(JWTMiddlewareConfig{JWTService: svc})

	t.Run("valid token", func(t *testing.T) {
		token, userID := issue(t, svc, auth.RoleOfficer)
		w := doGet(router, token)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"actor":"`+userID.String()+`"`)
		assert.Contains(t, w.Body.String(), `"ctx_actor":"`+userID.String()+`"`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := doGet(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeError(t, w.Body.Bytes()).Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, "Basic abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := doGet(router, "abc.def.ghi")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeError(t, w.Body.Bytes()).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.IssueAccessToken(auth.IssueInput{UserID: uuid.New(), TTL: time.Nanosecond})
		require.NoError(t, err)
		time.Sleep(1100 * time.Millisecond)

		w := doGet(router, token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenExpired, decodeError(t, w.Body.Bytes()).Code)
	})
}

func TestJWTAuth_Revocation(t *testing.T) {
	svc := newTestJWT()
	revocations := auth.NewMemoryRevocations()
	router := newAuthRouter(JWTMiddlewareConfig{JWTService: svc, Revocations: revocations})

	token, userID := issue(t, svc, auth.RoleOfficer)
	assert.Equal(t, http.StatusOK, doGet(router, token).Code)

	require.NoError(t, revocations.RevokeSubject(context.Background(), userID.String(), time.Hour))
	w := doGet(router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, decodeError(t, w.Body.Bytes()).Message, "revoked")
}

func TestJWTAuth_RevocationStoreDownFailsOpen(t *testing.T) {
	svc := newTestJWT()
	router := newAuthRouter(JWTMiddlewareConfig{JWTService: svc, Revocations: unreachableRevocations{}})

	token, _ := issue(t, svc, auth.RoleOfficer)
	assert.Equal(t, http.StatusOK, doGet(router, token).Code)
}

func TestRequireRole(t *testing.T) {
	svc := newTestJWT()
	router := newAuthRouter(JWTMiddlewareConfig{JWTService: svc}, RequireRole(auth.RoleChairman))

	chairman, _ := issue(t, svc, auth.RoleChairman)
	admin, _ := issue(t, svc, auth.RoleAdmin)
	officer, _ := issue(t, svc, auth.RoleOfficer)

	assert.Equal(t, http.StatusOK, doGet(router, chairman).Code)
	assert.Equal(t, http.StatusOK, doGet(router, admin).Code)

	w := doGet(router, officer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, w.Body.Bytes()).Code)
}

func TestRequireRole_WithoutAuthentication(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequireRole(auth.RoleOfficer), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
