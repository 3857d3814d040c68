package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every operator token
const Issuer = "automas-booking-engine"

// TokenType represents the type of JWT token
type TokenType string

const (
	OperatorToken TokenType = "operator"
)

// Operator roles
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
)

// Claims represents the JWT claims of an operator token
type Claims struct {
	OperatorID string    `json:"operator_id"`
	Roles      []string  `json:"roles"`
	TokenType  TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry any of roles
func (c *Claims) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Service signs and validates operator tokens
type Service struct {
	secret string
	expiry time.Duration
	now    func() time.Time
}

// NewService creates a new JWT service
func NewService(secret string, expiry time.Duration) *Service {
	return &Service{
		secret: secret,
		expiry: expiry,
		now:    time.Now,
	}
}

// GenerateToken issues an operator token
func (s *Service) GenerateToken(operatorID string, roles []string) (string, error) {
	if operatorID == "" {
		return "", fmt.Errorf("operator id is required")
	}

	now := s.now()
	claims := Claims{
		OperatorID: operatorID,
		Roles:      roles,
		TokenType:  OperatorToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   operatorID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign operator token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates and parses an operator token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	}, jwt.WithIssuer(Issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.TokenType != OperatorToken {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", OperatorToken, claims.TokenType)
	}

	return claims, nil
}

// ExtractClaims extracts claims from a token without validation (for debugging)
func (s *Service) ExtractClaims(tokenString string) (*Claims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// IsTokenExpired checks if a token is expired
func (s *Service) IsTokenExpired(tokenString string) bool {
	claims, err := s.ExtractClaims(tokenString)
	if err != nil {
		return true
	}

	if claims.ExpiresAt == nil {
		return true
	}

	return claims.ExpiresAt.Time.Before(s.now())
}
