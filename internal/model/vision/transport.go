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
	"errors"
	"fmt"

	pkgerrors "image-inference/pkg/errors"
)

// CredentialSource 凭证来源（secrets.Store 满足该接口）
type CredentialSource interface {
	Get(ctx context.Context, key string) (string, error)
}

// TransportConfig 各类传输的公共配置
type TransportConfig struct {
	Gradio      GradioConfig
	Gemini      GeminiConfig
	Credentials CredentialSource
}

// NewTransportFactory 根据配置创建传输工厂；凭证在首次使用对应后端时才读取
func NewTransportFactory(cfg TransportConfig) TransportFactory {
	return func(ctx context.Context, d Descriptor) (Transport, error) {
		switch d.Transport {
		case TransportGradio:
			return NewGradioTransport(d, cfg.Gradio), nil
		case TransportGemini:
			gc := cfg.Gemini
			if gc.APIKey == "" && d.Credential != "" && cfg.Credentials != nil {
				key, err := cfg.Credentials.Get(ctx, d.Credential)
				if err != nil && !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
					return nil, pkgerrors.Wrapf(err, "read credential %s", d.Credential)
				}
				gc.APIKey = key
			}
			t, err := NewGeminiTransport(gc)
			if errors.Is(err, ErrMissingCredential) {
				return nil, fmt.Errorf("%w: %s", ErrMissingCredential, d.Credential)
			}
			if err != nil {
				return nil, err
			}
			return t, nil
		default:
			return nil, fmt.Errorf("backend %q: unknown transport %q", d.ID, d.Transport)
		}
	}
}
