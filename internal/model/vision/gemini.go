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

package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig Gemini 传输配置
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GeminiTransport Gemini generateContent 客户端（多模态：文本 + inline 图片）
type GeminiTransport struct {
	baseURL string
	apiKey  string
	client  *resty.Client
}

// NewGeminiTransport 创建 Gemini 传输句柄；API Key 为空时返回 ErrMissingCredential
func NewGeminiTransport(cfg GeminiConfig) (*GeminiTransport, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)

	return &GeminiTransport{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}, nil
}

// Call 按参数顺序组装 parts 并调用 generateContent
func (t *GeminiTransport) Call(ctx context.Context, call Call) (json.RawMessage, error) {
	parts := make([]map[string]any, 0, len(call.Params))
	for _, p := range call.Params {
		switch v := p.Value.(type) {
		case *Image:
			parts = append(parts, map[string]any{
				"inline_data": map[string]any{
					"mime_type": v.MIME,
					"data":      base64.StdEncoding.EncodeToString(v.Data),
				},
			})
		case string:
			parts = append(parts, map[string]any{"text": v})
		default:
			return nil, fmt.Errorf("gemini: unsupported parameter %q of type %T", p.Name, p.Value)
		}
	}

	request := map[string]any{
		"contents": []map[string]any{{
			"role":  "user",
			"parts": parts,
		}},
	}

	response, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", t.apiKey).
		SetBody(request).
		Post(t.baseURL + "/models/" + call.Target + ":" + call.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		msg := gjson.GetBytes(response.Body(), "error.message").String()
		if msg == "" {
			msg = response.String()
		}
		return nil, fmt.Errorf("gemini returned %d: %s", response.StatusCode(), msg)
	}
	return json.RawMessage(response.Body()), nil
}
