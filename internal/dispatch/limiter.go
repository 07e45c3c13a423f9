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
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LimitConfig 单个后端的限流配置
type LimitConfig struct {
	RequestsPerMinute float64 // 每分钟请求数，0 表示不限
	MaxConcurrent     int     // 最大并发请求数，0 表示不限
}

// Limiter 后端维度的限流器，支持 RPM + 并发控制；未配置的后端不受限
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*backendLimiter // backend id -> limiter
}

type backendLimiter struct {
	requestLimiter *rate.Limiter
	semaphore      chan struct{}
	config         LimitConfig
}

// NewLimiter 创建限流器
func NewLimiter(configs map[string]LimitConfig) *Limiter {
	l := &Limiter{limiters: make(map[string]*backendLimiter, len(configs))}
	for backend, cfg := range configs {
		l.addBackendLimiter(backend, cfg)
	}
	return l
}

func (l *Limiter) addBackendLimiter(backend string, config LimitConfig) {
	limiter := &backendLimiter{config: config}

	// RPM 转换为每秒
	if config.RequestsPerMinute > 0 {
		rps := config.RequestsPerMinute / 60.0
		burst := int(rps * 2) // burst = 2 秒的配额
		if burst < 1 {
			burst = 1
		}
		limiter.requestLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	if config.MaxConcurrent > 0 {
		limiter.semaphore = make(chan struct{}, config.MaxConcurrent)
	}

	l.mu.Lock()
	l.limiters[backend] = limiter
	l.mu.Unlock()
}

func (l *Limiter) get(backend string) *backendLimiter {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiters[backend]
}

// Wait 等待获取执行许可；成功后须调用 Release
func (l *Limiter) Wait(ctx context.Context, backend string) error {
	limiter := l.get(backend)
	if limiter == nil {
		return nil
	}

	if limiter.requestLimiter != nil {
		if err := limiter.requestLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}

	if limiter.semaphore != nil {
		select {
		case limiter.semaphore <- struct{}{}:
		case <-ctx.Done():
			return fmt.Errorf("concurrency limit wait failed: %w", ctx.Err())
		}
	}
	return nil
}

// Release 释放并发 slot
func (l *Limiter) Release(backend string) {
	limiter := l.get(backend)
	if limiter == nil || limiter.semaphore == nil {
		return
	}
	select {
	case <-limiter.semaphore:
	default:
	}
}

// Stats 获取限流统计信息；未配置的后端返回 nil
func (l *Limiter) Stats(backend string) map[string]interface{} {
	limiter := l.get(backend)
	if limiter == nil {
		return nil
	}
	stats := map[string]interface{}{
		"requests_per_minute": limiter.config.RequestsPerMinute,
		"max_concurrent":      limiter.config.MaxConcurrent,
	}
	if limiter.semaphore != nil {
		stats["current_concurrent"] = len(limiter.semaphore)
		stats["available_slots"] = cap(limiter.semaphore) - len(limiter.semaphore)
	}
	return stats
}
