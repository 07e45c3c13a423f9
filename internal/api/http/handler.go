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
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"image-inference/internal/dispatch"
	"image-inference/internal/model/vision"
	"image-inference/internal/narrate"
	"image-inference/pkg/metrics"
)

// Invoker 执行推理（dispatch.Dispatcher 满足该接口）
type Invoker interface {
	Invoke(ctx context.Context, req vision.Request) dispatch.Result
}

// Lister 列出后端目录（model.Registry 满足该接口）
type Lister interface {
	Backends() []vision.Descriptor
}

// LimitReporter 提供后端限流统计（dispatch.Limiter 满足该接口）
type LimitReporter interface {
	Stats(backend string) map[string]interface{}
}

// Options Handler 配置
type Options struct {
	DefaultBackend string
	MaxUploadBytes int64
	Limits         LimitReporter // 可选
}

// Handler HTTP 处理器
type Handler struct {
	invoker Invoker
	catalog Lister
	opts    Options
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(invoker Invoker, catalog Lister, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{invoker: invoker, catalog: catalog, opts: opts}
}

// BackendInfo 后端目录条目
type BackendInfo struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"display_name"`
	Transport   string                 `json:"transport"`
	Default     bool                   `json:"default,omitempty"`
	RateLimit   map[string]interface{} `json:"rate_limit,omitempty"`
}

// DescribeResponse 推理响应
type DescribeResponse struct {
	Backend string `json:"backend"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "image-inference",
	})
}

// ListBackends 列出可选后端
// GET /api/backends
func (h *Handler) ListBackends(c context.Context, ctx *app.RequestContext) {
	descs := h.catalog.Backends()
	out := make([]BackendInfo, 0, len(descs))
	for _, d := range descs {
		info := BackendInfo{
			ID:          d.ID,
			DisplayName: d.DisplayName,
			Transport:   string(d.Transport),
			Default:     d.ID == h.opts.DefaultBackend,
		}
		if h.opts.Limits != nil {
			info.RateLimit = h.opts.Limits.Stats(d.ID)
		}
		out = append(out, info)
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{"backends": out})
}

// Describe 上传图片并返回描述
// POST /api/describe  multipart: image, backend, prompt
func (h *Handler) Describe(c context.Context, ctx *app.RequestContext) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}
	if !vision.AcceptsUpload(fh.Filename) {
		ctx.JSON(consts.StatusUnsupportedMediaType, map[string]string{
			"error": fmt.Sprintf("unsupported file type %q, accepted: png, jpg, jpeg, bmp", fh.Filename),
		})
		return
	}
	if fh.Size > h.opts.MaxUploadBytes {
		ctx.JSON(consts.StatusRequestEntityTooLarge, map[string]string{"error": "image too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read image: %v", err)})
		return
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, h.opts.MaxUploadBytes+1)); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read image: %v", err)})
		return
	}

	req := vision.Request{
		BackendID: ctx.DefaultPostForm("backend", h.opts.DefaultBackend),
		Image:     buf.Bytes(),
		Prompt:    ctx.DefaultPostForm("prompt", narrate.DefaultPrompt),
	}
	res := h.invoker.Invoke(c, req)
	if !res.OK() {
		hlog.CtxWarnf(c, "describe failed: backend=%s %s", req.BackendID, res.Message())
		ctx.JSON(statusFor(res.Err.Kind), DescribeResponse{
			Backend: req.BackendID,
			Error:   res.Message(),
			Kind:    string(res.Err.Kind),
		})
		return
	}
	ctx.JSON(consts.StatusOK, DescribeResponse{Backend: req.BackendID, Text: res.Text})
}

// Preflight CORS 预检，响应头由 CORS 中间件写入
func (h *Handler) Preflight(c context.Context, ctx *app.RequestContext) {
	ctx.Status(consts.StatusNoContent)
}

// Metrics Prometheus 指标
// GET /metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(c, "gather metrics: %v", err)
		ctx.AbortWithStatus(consts.StatusInternalServerError)
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

func statusFor(kind dispatch.Kind) int {
	switch kind {
	case dispatch.KindUnknownBackend:
		return consts.StatusNotFound
	case dispatch.KindInvalidRequest:
		return consts.StatusBadRequest
	case dispatch.KindConfigError:
		return consts.StatusServiceUnavailable
	case dispatch.KindTransportError, dispatch.KindExtractionError:
		return consts.StatusBadGateway
	default:
		return consts.StatusInternalServerError
	}
}
