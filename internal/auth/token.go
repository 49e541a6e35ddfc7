package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager mints and verifies the bearer tokens presented to the guard API
type TokenManager struct {
	secret     []byte
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret, issuer string, defaultTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// GenerateToken signs a token for subject. A zero ttl uses the default lifetime.
func (tm *TokenManager) GenerateToken(subject, tokenType string, scopes []string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("token subject is required")
	}
	if tokenType != models.TokenTypeService && tokenType != models.TokenTypeAdmin {
		return "", time.Time{}, fmt.Errorf("unknown token type %q", tokenType)
	}
	for _, scope := range scopes {
		if !models.IsValidScope(scope) {
			return "", time.Time{}, fmt.Errorf("unknown scope %q", scope)
		}
	}
	if ttl <= 0 {
		ttl = tm.defaultTTL
	}

	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &models.TokenClaims{
		Type:   tokenType,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeService && claims.Type != models.TokenTypeAdmin {
		return nil, fmt.Errorf("invalid token: unknown type %q", claims.Type)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}

	return claims, nil
}
