package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		key, err := ParseKey(strings.Repeat("ab", KeySize))
		require.NoError(t, err)
		assert.Equal(t, byte(0xab), key[0])
		assert.Equal(t, byte(0xab), key[KeySize-1])
	})

	t.Run("short key", func(t *testing.T) {
		_, err := ParseKey("abcd")
		assert.Error(t, err)
	})

	t.Run("not hex", func(t *testing.T) {
		_, err := ParseKey(strings.Repeat("zz", KeySize))
		assert.Error(t, err)
	})
}

func TestGenerateServiceSecrets(t *testing.T) {
	jwtSecret, handoffKey, err := GenerateServiceSecrets()
	require.NoError(t, err)

	assert.Len(t, jwtSecret, 64)
	assert.Len(t, handoffKey, KeySize*2)
	assert.NotEqual(t, jwtSecret, handoffKey)

	_, err = ParseKey(handoffKey)
	assert.NoError(t, err)
}

func TestParseUserAgent(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		info := ParseUserAgent("")
		assert.Equal(t, "unknown", info.DeviceType)
		assert.Equal(t, "unknown", info.Platform)
	})

	t.Run("desktop chrome", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Equal(t, "desktop", info.DeviceType)
		assert.Equal(t, "Chrome", info.Browser)
		assert.Equal(t, "windows", info.Platform)
		assert.False(t, info.IsBot)
	})

	t.Run("iphone", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Equal(t, "mobile", info.DeviceType)
	})
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"public X-Real-IP", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"first public forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 198.51.100.4"}, "198.51.100.4"},
		{"all private forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(c))
		})
	}
}
