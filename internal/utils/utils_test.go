package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "public real ip", headers: map[string]string{"X-Real-IP": "203.0.113.7"}, want: "203.0.113.7"},
		{
			name:    "private real ip falls through to forwarded",
			headers: map[string]string{"X-Real-IP": "192.168.1.2", "X-Forwarded-For": "10.1.1.1, 198.51.100.4"},
			want:    "198.51.100.4",
		},
		{
			name:    "only private forwarded entries",
			headers: map[string]string{"X-Forwarded-For": "garbage, 172.16.0.5, 10.0.0.1"},
			want:    "172.16.0.5",
		},
		{name: "no headers", headers: nil, want: "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetRealIP(testContext(tt.headers)))
		})
	}
}

func TestGetUserAgent(t *testing.T) {
	assert.Equal(t, "NextStop/2.1", GetUserAgent(testContext(map[string]string{"User-Agent": "NextStop/2.1"})))

	c := testContext(nil)
	c.Request.Header.Del("User-Agent")
	assert.Equal(t, "Unknown", GetUserAgent(c))
}

func TestParseUserAgent(t *testing.T) {
	android := ParseUserAgent("Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36")
	assert.Equal(t, "mobile", android.DeviceType)
	assert.Equal(t, "android", android.Platform)
	assert.Equal(t, "Chrome", android.Browser)
	assert.False(t, android.IsBot)

	desktop := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Equal(t, "desktop", desktop.DeviceType)
	assert.Equal(t, "windows", desktop.Platform)

	unknown := ParseUserAgent("Unknown")
	assert.Equal(t, "unknown", unknown.DeviceType)
	assert.Equal(t, "unknown", unknown.Platform)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = GenerateSecret(8)
	assert.Error(t, err)
}
