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

package app

import (
	"time"

	"image-inference/internal/dispatch"
	"image-inference/internal/model/vision"
	"image-inference/pkg/config"
)

// NewTransportFactory 根据 config.Model.Vision 创建传输工厂；凭证缺失时在首次使用对应后端时报错
func NewTransportFactory(cfg *config.Config, creds vision.CredentialSource) vision.TransportFactory {
	vc := cfg.Model.Vision
	return vision.NewTransportFactory(vision.TransportConfig{
		Gradio: vision.GradioConfig{
			HubURL:  vc.Gradio.HubURL,
			Hosts:   vc.Gradio.Hosts,
			Token:   vc.Gradio.Token,
			Timeout: config.ParseDuration(vc.Gradio.Timeout, 120*time.Second),
		},
		Gemini: vision.GeminiConfig{
			BaseURL: vc.Gemini.BaseURL,
			APIKey:  vc.Gemini.APIKey,
			Timeout: config.ParseDuration(vc.Gemini.Timeout, 60*time.Second),
		},
		Credentials: creds,
	})
}

// NewLimiter 根据 config.RateLimits 创建后端限流器；未配置时返回 nil（不限流）
func NewLimiter(cfg *config.Config) *dispatch.Limiter {
	if len(cfg.RateLimits.Backends) == 0 {
		return nil
	}
	limits := make(map[string]dispatch.LimitConfig, len(cfg.RateLimits.Backends))
	for id, l := range cfg.RateLimits.Backends {
		limits[id] = dispatch.LimitConfig{
			RequestsPerMinute: l.RequestsPerMinute,
			MaxConcurrent:     l.MaxConcurrent,
		}
	}
	return dispatch.NewLimiter(limits)
}
