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

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"image-inference/internal/model/vision"
	"image-inference/pkg/log"
	"image-inference/pkg/metrics"
	"image-inference/pkg/tracing"
)

// Catalog 后端目录（model.Registry 满足该接口）
type Catalog interface {
	Lookup(id string) (vision.Descriptor, error)
}

// Option 配置 Dispatcher
type Option func(*Dispatcher)

// WithLogger 设置日志
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLimiter 设置后端维度限流；nil 表示不限流
func WithLimiter(l *Limiter) Option {
	return func(d *Dispatcher) {
		d.limiter = l
	}
}

// Dispatcher 选择后端、编排参数、调用并归一化结果
type Dispatcher struct {
	catalog Catalog
	factory vision.TransportFactory
	limiter *Limiter
	logger  *log.Logger

	mu         sync.Mutex
	transports map[string]vision.Transport // backend id -> 传输句柄，首次使用时创建
}

// New 创建 Dispatcher
func New(catalog Catalog, factory vision.TransportFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog:    catalog,
		factory:    factory,
		logger:     log.Discard(),
		transports: make(map[string]vision.Transport),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke 执行一次推理；任何失败都转换为 Result，不会 panic 也不会返回 error
func (d *Dispatcher) Invoke(ctx context.Context, req vision.Request) (res Result) {
	requestID := uuid.NewString()
	start := time.Now()
	ctx, span := tracing.StartInferenceSpan(ctx, requestID, req.BackendID)
	metrics.InferenceInFlight.Inc()

	defer func() {
		if r := recover(); r != nil {
			res = Fail(newError(KindInternalError, req.BackendID, "", fmt.Errorf("panic: %v", r)))
		}
		metrics.InferenceInFlight.Dec()

		elapsed := time.Since(start)
		backend, outcome := req.BackendID, "ok"
		if res.Err != nil {
			outcome = string(res.Err.Kind)
			if res.Err.Kind == KindUnknownBackend {
				backend = "unknown"
			}
			tracing.EndSpan(span, outcome, res.Err)
			d.logger.Warn("推理失败",
				"request_id", requestID, "backend", req.BackendID,
				"stage", string(res.Err.Stage), "kind", outcome,
				"error", res.Err.Detail, "duration", elapsed)
		} else {
			tracing.EndSpan(span, "", nil)
			d.logger.Info("推理完成",
				"request_id", requestID, "backend", req.BackendID,
				"chars", len(res.Text), "duration", elapsed)
		}
		metrics.InferenceTotal.WithLabelValues(backend, outcome).Inc()
		metrics.InferenceDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
	}()

	return d.invoke(ctx, req)
}

func (d *Dispatcher) invoke(ctx context.Context, req vision.Request) Result {
	desc, err := d.catalog.Lookup(req.BackendID)
	if err != nil {
		return Fail(&Error{Kind: KindUnknownBackend, Backend: req.BackendID, Stage: StageLookup, Detail: req.BackendID, Err: err})
	}
	if err := req.Validate(); err != nil {
		return Fail(newError(KindInvalidRequest, desc.ID, StageValidate, err))
	}

	call, err := desc.Marshal(req)
	if err != nil {
		kind := KindInvalidRequest
		if errors.Is(err, vision.ErrUnresolvedField) {
			kind = KindConfigError
		}
		return Fail(newError(kind, desc.ID, StageMarshal, err))
	}

	transport, err := d.transport(ctx, desc)
	if err != nil {
		return Fail(newError(KindConfigError, desc.ID, StageTransport, err))
	}

	raw, err := d.call(ctx, desc.ID, transport, call)
	if err != nil {
		return Fail(newError(KindTransportError, desc.ID, StageCall, err))
	}

	text, err := desc.Extract(raw)
	if err != nil {
		return Fail(newError(KindExtractionError, desc.ID, StageExtract, err))
	}
	return Ok(text)
}

func (d *Dispatcher) call(ctx context.Context, backend string, t vision.Transport, call vision.Call) (json.RawMessage, error) {
	if err := d.limiter.Wait(ctx, backend); err != nil {
		return nil, err
	}
	defer d.limiter.Release(backend)
	return t.Call(ctx, call)
}

// transport 获取或创建后端的传输句柄；创建失败不缓存，下次调用重试
func (d *Dispatcher) transport(ctx context.Context, desc vision.Descriptor) (vision.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.transports[desc.ID]; ok {
		return t, nil
	}

	ctx, span := tracing.StartTransportSpan(ctx, desc.ID, string(desc.Transport))
	t, err := d.factory(ctx, desc)
	if err != nil {
		tracing.EndSpan(span, string(KindConfigError), err)
		return nil, err
	}
	tracing.EndSpan(span, "", nil)

	d.transports[desc.ID] = t
	metrics.TransportCreated.WithLabelValues(desc.ID).Inc()
	d.logger.Debug("创建传输句柄", "backend", desc.ID, "transport", string(desc.Transport))
	return t, nil
}
