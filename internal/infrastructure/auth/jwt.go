package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/infrastructure/config"
)

// Role is the market role carried in an access token
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleChairman Role = "chairman"
	RoleOfficer  Role = "officer"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the claims the identity service puts in market access tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id,omitempty"`
	Roles    []Role `json:"roles,omitempty"`
}

// JWTService validates access tokens. Tokens are issued by the identity
// service; IssueAccessToken exists for operator tooling and tests.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// IssueInput contains input for token issuance
type IssueInput struct {
	UserID   uuid.UUID
	MarketID uuid.UUID
	Roles    []Role
	TTL      time.Duration
}

// IssueAccessToken signs an access token for the given principal
func (s *JWTService) IssueAccessToken(input IssueInput) (string, error) {
	now := s.now()
	ttl := input.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: input.UserID.String(),
		Roles:  input.Roles,
	}
	if input.MarketID != uuid.Nil {
		claims.MarketID = input.MarketID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidClaims
	}
	if claims.MarketID != "" {
		if _, err := uuid.Parse(claims.MarketID); err != nil {
			return nil, ErrInvalidClaims
		}
	}

	return claims, nil
}

// GetUserUUID extracts and parses the user ID from claims
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GetMarketUUID returns the market the principal is scoped to, if any
func (c *Claims) GetMarketUUID() (*uuid.UUID, error) {
	if c.MarketID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(c.MarketID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// HasRole checks if the claims carry a role
func (c *Claims) HasRole(role Role) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole checks if the claims carry any of the roles
func (c *Claims) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// GetIssuedAtTime returns the token's issued-at time as time.Time
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}
