// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"bytes"
	"context"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"

	"image-inference/internal/api/http/middleware"
	"image-inference/internal/dispatch"
	"image-inference/internal/model"
)

func buildRouterForTest(metricsEnabled bool) *server.Hertz {
	h := NewHandler(&fakeInvoker{res: dispatch.Ok("ok")}, model.DefaultRegistry(), Options{DefaultBackend: "docmatix"})
	r := NewRouter(h, middleware.NewMiddleware())
	r.SetMetricsEnabled(metricsEnabled)
	return r.Build(":0")
}

func TestRouter_MetricsDisabledByDefault(t *testing.T) {
	s := buildRouterForTest(false)
	w := ut.PerformRequest(s.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	if got := w.Result().StatusCode(); got != 404 {
		t.Fatalf("GET /metrics status = %d, want 404", got)
	}
}

func TestRouter_MetricsEnabled(t *testing.T) {
	s := buildRouterForTest(true)
	w := ut.PerformRequest(s.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "vision_inference_in_flight")
}

func TestRouter_RequestIDAndCORS(t *testing.T) {
	s := buildRouterForTest(false)

	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0},
		ut.Header{Key: middleware.HeaderRequestID, Value: "req-42"})
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "req-42", string(resp.Header.Peek(middleware.HeaderRequestID)))
	assert.Equal(t, "*", string(resp.Header.Peek("Access-Control-Allow-Origin")))

	w = ut.PerformRequest(s.Engine, "GET", "/api/backends", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.NotEmpty(t, string(w.Result().Header.Peek(middleware.HeaderRequestID)))

	w = ut.PerformRequest(s.Engine, "OPTIONS", "/api/describe", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 204, w.Result().StatusCode())
}

func TestRouter_UseRunsBeforeRoutes(t *testing.T) {
	h := NewHandler(&fakeInvoker{res: dispatch.Ok("ok")}, model.DefaultRegistry(), Options{DefaultBackend: "docmatix"})
	r := NewRouter(h, middleware.NewMiddleware())
	var seen []string
	r.Use(func(c context.Context, ctx *app.RequestContext) {
		seen = append(seen, string(ctx.Path()))
		ctx.Next(c)
	})
	s := r.Build(":0")

	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())
	w = ut.PerformRequest(s.Engine, "OPTIONS", "/api/describe", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 204, w.Result().StatusCode())
	assert.Equal(t, []string{"/api/health", "/api/describe"}, seen)
}
