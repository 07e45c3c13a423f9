// Copyright 2026 fanjia1024
// Tests for API application assembly

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-inference/internal/app"
	"image-inference/pkg/config"
)

func TestNewApp_RequiresBootstrap(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestNewApp_Routes(t *testing.T) {
	cfg := config.Default()
	cfg.Monitoring.Prometheus.Enable = true
	b, err := app.NewBootstrap(cfg)
	require.NoError(t, err)

	a, err := NewApp(b)
	require.NoError(t, err)

	h := a.router.Build(":0")
	for _, path := range []string{"/api/health", "/api/backends", "/metrics"} {
		w := ut.PerformRequest(h.Engine, "GET", path, &ut.Body{Body: bytes.NewReader(nil), Len: 0})
		assert.Equal(t, 200, w.Result().StatusCode(), path)
	}
	assert.NoError(t, a.Shutdown(context.Background()))
}

func TestNewApp_BackendsReportRateLimits(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimits.Backends = map[string]config.BackendRateLimitConfig{
		"gemini": {RequestsPerMinute: 15},
	}
	b, err := app.NewBootstrap(cfg)
	require.NoError(t, err)
	require.NotNil(t, b.Limiter)

	a, err := NewApp(b)
	require.NoError(t, err)
	h := a.router.Build(":0")
	w := ut.PerformRequest(h.Engine, "GET", "/api/backends", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	require.Equal(t, 200, w.Result().StatusCode())

	var body struct {
		Backends []struct {
			ID        string         `json:"id"`
			RateLimit map[string]any `json:"rate_limit"`
		} `json:"backends"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &body))
	for _, be := range body.Backends {
		if be.ID == "gemini" {
			assert.Equal(t, float64(15), be.RateLimit["requests_per_minute"])
		} else {
			assert.Nil(t, be.RateLimit, be.ID)
		}
	}
}
