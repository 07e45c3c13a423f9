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
	"encoding/json"
	"errors"
	"fmt"
)

// TransportKind 后端使用的传输方式
type TransportKind string

const (
	// TransportGradio Hugging Face Space 上的 Gradio 应用
	TransportGradio TransportKind = "gradio"
	// TransportGemini Google Generative Language REST API
	TransportGemini TransportKind = "gemini"
)

// FieldSource 参数取值来源
type FieldSource int

const (
	FromImage FieldSource = iota
	FromPrompt
	FromLiteral
)

func (s FieldSource) String() string {
	switch s {
	case FromImage:
		return "image"
	case FromPrompt:
		return "prompt"
	case FromLiteral:
		return "literal"
	default:
		return fmt.Sprintf("FieldSource(%d)", int(s))
	}
}

// Field 后端要求的单个参数；Value 仅对 FromLiteral 有效
type Field struct {
	Name   string
	Source FieldSource
	Value  string
}

var (
	ErrEmptyImage        = errors.New("image must be non-empty")
	ErrEmptyPrompt       = errors.New("prompt must be non-empty")
	ErrUnresolvedField   = errors.New("unresolved field")
	ErrMissingCredential = errors.New("credential not configured")
)

// Request 单次推理请求，由调用方构造，调用结束后丢弃
type Request struct {
	BackendID string
	Image     []byte
	Prompt    string
}

// Validate 检查图片与提示词均非空
func (r Request) Validate() error {
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	if len(r.Image) == 0 {
		return ErrEmptyImage
	}
	return nil
}

// Param 已解析的调用参数，Value 为 string 或 *Image
type Param struct {
	Name  string
	Value any
}

// Call 交给传输层的调用参数（字段顺序即后端位置参数顺序）
type Call struct {
	Target   string
	Endpoint string
	Params   []Param
}

// Backend 统一的后端调用能力：参数编排 + 响应提取
type Backend interface {
	Marshal(req Request) (Call, error)
	Extract(raw json.RawMessage) (string, error)
}

// Transport 一次同步远程调用，返回后端原始响应
type Transport interface {
	Call(ctx context.Context, call Call) (json.RawMessage, error)
}

// TransportFactory 按后端契约创建传输句柄（首次使用时调用）
type TransportFactory func(ctx context.Context, d Descriptor) (Transport, error)

// Descriptor 后端调用契约，进程启动时定义，之后只读
type Descriptor struct {
	ID          string
	DisplayName string
	Transport   TransportKind
	// Target Space id（gradio）或模型名（gemini）
	Target     string
	Endpoint   string
	Fields     []Field
	Extraction Extractor
	// Credential 需要的凭证 key，空表示无需认证
	Credential string
}

var _ Backend = Descriptor{}

// Validate 校验每个字段都能由 (image, prompt) 或固定值满足
func (d Descriptor) Validate() error {
	if d.ID == "" || d.Target == "" || d.Endpoint == "" {
		return fmt.Errorf("descriptor %q: id, target and endpoint are required", d.ID)
	}
	var hasImage, hasPrompt bool
	for _, f := range d.Fields {
		switch f.Source {
		case FromImage:
			hasImage = true
		case FromPrompt:
			hasPrompt = true
		case FromLiteral:
			if f.Value == "" {
				return fmt.Errorf("descriptor %q: %w %q", d.ID, ErrUnresolvedField, f.Name)
			}
		default:
			return fmt.Errorf("descriptor %q: %w %q (%s)", d.ID, ErrUnresolvedField, f.Name, f.Source)
		}
	}
	if !hasImage || !hasPrompt {
		return fmt.Errorf("descriptor %q: needs both an image and a prompt field", d.ID)
	}
	return nil
}

// Marshal 按 Fields 顺序生成调用参数，图片先归一化
func (d Descriptor) Marshal(req Request) (Call, error) {
	var img *Image
	params := make([]Param, 0, len(d.Fields))
	for _, f := range d.Fields {
		switch f.Source {
		case FromImage:
			if img == nil {
				var err error
				img, err = NormalizeImage(req.Image)
				if err != nil {
					return Call{}, err
				}
			}
			params = append(params, Param{Name: f.Name, Value: img})
		case FromPrompt:
			params = append(params, Param{Name: f.Name, Value: req.Prompt})
		case FromLiteral:
			if f.Value == "" {
				return Call{}, fmt.Errorf("%w %q", ErrUnresolvedField, f.Name)
			}
			params = append(params, Param{Name: f.Name, Value: f.Value})
		default:
			return Call{}, fmt.Errorf("%w %q", ErrUnresolvedField, f.Name)
		}
	}
	return Call{Target: d.Target, Endpoint: d.Endpoint, Params: params}, nil
}

// Extract 按提取规则从原始响应中取出文本
func (d Descriptor) Extract(raw json.RawMessage) (string, error) {
	return d.Extraction.Extract(raw)
}
