package jwt

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-operator-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, time.Hour, service.expiry)
}

func TestGenerateToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	token, err := service.GenerateToken("ops-1", []string{RoleAdmin})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.OperatorID)
	assert.Equal(t, []string{RoleAdmin}, claims.Roles)
	assert.Equal(t, OperatorToken, claims.TokenType)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, "ops-1", claims.Subject)
}

func TestGenerateToken_RequiresOperator(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	_, err := service.GenerateToken("", nil)
	assert.Error(t, err)
}

func TestValidateToken_Invalid(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "invalid.token.here"},
		{"random", "randomstringnotavalidtoken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewService("another-secret", time.Hour).GenerateToken("ops-1", nil)
	require.NoError(t, err)

	_, err = NewService(testSecret, time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongType(t *testing.T) {
	now := time.Now()
	claims := Claims{
		OperatorID: "ops-1",
		TokenType:  "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			Issuer:    Issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewService(testSecret, time.Hour).ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token type")
}

func TestTokenSigningMethod(t *testing.T) {
	claims := Claims{OperatorID: "ops-1", TokenType: OperatorToken, RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewService(testSecret, time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	service.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := service.GenerateToken("ops-1", nil)
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.ValidateToken(token)
	assert.Error(t, err)
	assert.True(t, service.IsTokenExpired(token))
}

func TestIsTokenExpired(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	token, err := service.GenerateToken("ops-1", nil)
	require.NoError(t, err)
	assert.False(t, service.IsTokenExpired(token))
	assert.True(t, service.IsTokenExpired("garbage"))
}

func TestExtractClaims(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	token, err := service.GenerateToken("ops-1", []string{RoleSupport})
	require.NoError(t, err)

	claims, err := NewService("other", time.Hour).ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.OperatorID)
}

func TestHasRole(t *testing.T) {
	claims := &Claims{Roles: []string{RoleSupport}}

	assert.True(t, claims.HasRole(RoleAdmin, RoleSupport))
	assert.False(t, claims.HasRole(RoleAdmin))
	assert.False(t, (&Claims{}).HasRole(RoleAdmin))
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := service.GenerateToken("ops-1", []string{RoleAdmin})
			if err == nil {
				_, err = service.ValidateToken(token)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
