package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func serve(t *testing.T, h gin.HandlerFunc, path string) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	h(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthCheck(t *testing.T) {
	code, body := serve(t, NewHealthHandler(nil, nil).HealthCheck, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "recall", body["service"])
	assert.Contains(t, body, "timestamp")
	assert.Contains(t, body, "version")
}

func TestLivenessCheck(t *testing.T) {
	code, body := serve(t, NewHealthHandler(nil, nil).LivenessCheck, "/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantCode   int
		wantStatus string
	}{
		{"healthy store", fakePinger{}, http.StatusOK, "ready"},
		{"failing store", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "not_ready"},
		{"no client", nil, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := serve(t, NewHealthHandler(tt.pinger, nil).ReadinessCheck, "/ready")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}
}

func TestDetailedHealthCheck(t *testing.T) {
	code, body := serve(t, NewHealthHandler(fakePinger{err: errors.New("down")}, nil).DetailedHealthCheck, "/health/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])

	checks := body["checks"].(map[string]interface{})
	database := checks["database"].(map[string]interface{})
	assert.Equal(t, "down", database["error"])
	assert.NotContains(t, checks, "search")
}
