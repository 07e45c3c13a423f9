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

package model

import (
	"errors"
	"fmt"

	"image-inference/internal/model/vision"
)

// ErrNotRegistered 后端 id 不在目录中
var ErrNotRegistered = errors.New("backend not registered")

// GeminiCredential gemini 后端所需凭证的 key
const GeminiCredential = "GEMINI_API_KEY"

// catalog 支持的后端目录，启动时固定，不可变更
var catalog = []vision.Descriptor{
	{
		ID:          "docmatix",
		DisplayName: "HuggingFaceM4/Docmatix-Florence-2",
		Transport:   vision.TransportGradio,
		Target:      "HuggingFaceM4/Docmatix-Florence-2",
		Endpoint:    "/process_image",
		Fields: []vision.Field{
			{Name: "image", Source: vision.FromImage},
			{Name: "text_input", Source: vision.FromPrompt},
		},
		Extraction: vision.Extractor{Path: "text_input_result", AllowBare: true},
	},
	{
		ID:          "phi-vision",
		DisplayName: "maxiw/Phi-3.5-vision",
		Transport:   vision.TransportGradio,
		Target:      "maxiw/Phi-3.5-vision",
		Endpoint:    "/run_example",
		Fields: []vision.Field{
			{Name: "image", Source: vision.FromImage},
			{Name: "text_input", Source: vision.FromPrompt},
			{Name: "model_id", Source: vision.FromLiteral, Value: "microsoft/Phi-3.5-vision-instruct"},
		},
		Extraction: vision.Extractor{},
	},
	{
		ID:          "gemini",
		DisplayName: "gemini-2.0-flash",
		Transport:   vision.TransportGemini,
		Target:      "gemini-2.0-flash",
		Endpoint:    "generateContent",
		Fields: []vision.Field{
			{Name: "prompt", Source: vision.FromPrompt},
			{Name: "image", Source: vision.FromImage},
		},
		Extraction: vision.Extractor{Path: "candidates.0.content.parts.#.text"},
		Credential: GeminiCredential,
	},
}

// Registry 后端 id -> 调用契约，只读
type Registry struct {
	order    []string
	backends map[string]vision.Descriptor
}

// NewRegistry 用给定契约构建注册表；id 重复或契约不完整时报错
func NewRegistry(descriptors ...vision.Descriptor) (*Registry, error) {
	r := &Registry{backends: make(map[string]vision.Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.backends[d.ID]; dup {
			return nil, fmt.Errorf("backend %q registered twice", d.ID)
		}
		r.order = append(r.order, d.ID)
		r.backends[d.ID] = d
	}
	return r, nil
}

var defaultRegistry = mustRegistry(catalog...)

func mustRegistry(descriptors ...vision.Descriptor) *Registry {
	r, err := NewRegistry(descriptors...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry 内置目录
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Lookup 按 id 获取后端契约
func (r *Registry) Lookup(id string) (vision.Descriptor, error) {
	d, ok := r.backends[id]
	if !ok {
		return vision.Descriptor{}, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return d, nil
}

// Backends 按注册顺序列出所有后端
func (r *Registry) Backends() []vision.Descriptor {
	out := make([]vision.Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.backends[id])
	}
	return out
}
