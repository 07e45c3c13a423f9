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
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"image-inference/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler       *Handler
	middleware    *middleware.Middleware
	enableMetrics bool
	maxBodyBytes  int
	leading       []app.HandlerFunc
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// SetMetricsEnabled 是否暴露 GET /metrics
func (r *Router) SetMetricsEnabled(enabled bool) {
	r.enableMetrics = enabled
}

// SetMaxBodyBytes 请求体上限（multipart 整体）
func (r *Router) SetMaxBodyBytes(n int) {
	r.maxBodyBytes = n
}

// Use 追加在路由注册前安装的全局中间件（如链路追踪）；须在 Build/Register 之前调用
func (r *Router) Use(mw ...app.HandlerFunc) {
	r.leading = append(r.leading, mw...)
}

// Build 创建 Hertz 实例并注册路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	serverOpts := []config.Option{server.WithHostPorts(addr)}
	if r.maxBodyBytes > 0 {
		serverOpts = append(serverOpts, server.WithMaxRequestBodySize(r.maxBodyBytes))
	}
	h := server.Default(append(serverOpts, opts...)...)
	r.Register(h)
	return h
}

// Register 注册中间件与路由
func (r *Router) Register(h *server.Hertz) {
	if len(r.leading) > 0 {
		h.Use(r.leading...)
	}
	h.Use(r.middleware.RequestID(), r.middleware.Logger())

	api := h.Group("/api", r.middleware.CORS())
	api.GET("/health", r.handler.HealthCheck)
	api.GET("/backends", r.handler.ListBackends)
	api.POST("/describe", r.handler.Describe)
	api.OPTIONS("/describe", r.handler.Preflight)

	if r.enableMetrics {
		h.GET("/metrics", r.handler.Metrics)
	}
}
