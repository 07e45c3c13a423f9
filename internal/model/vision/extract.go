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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedResponse 后端有响应但无法取出文本
var ErrMalformedResponse = errors.New("malformed response")

// Extractor 响应文本提取规则
type Extractor struct {
	// Path gjson 路径，空表示整个响应即为文本
	Path string
	// Join 路径命中数组时的拼接分隔符
	Join string
	// AllowBare 响应本身是字符串时直接使用，不再按 Path 查找
	AllowBare bool
}

// Extract 按规则提取文本；空字符串是合法结果
func (e Extractor) Extract(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: not valid JSON", ErrMalformedResponse)
	}
	doc := gjson.ParseBytes(raw)
	if e.Path == "" || (e.AllowBare && doc.Type == gjson.String) {
		return textOf(doc, "response")
	}

	v := doc.Get(e.Path)
	if !v.Exists() {
		return "", fmt.Errorf("%w: field %q not found", ErrMalformedResponse, e.Path)
	}
	if !v.IsArray() {
		return textOf(v, e.Path)
	}
	var parts []string
	for _, item := range v.Array() {
		s, err := textOf(item, e.Path)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, e.Join), nil
}

func textOf(v gjson.Result, where string) (string, error) {
	if v.Type != gjson.String {
		return "", fmt.Errorf("%w: %s is %s, want text", ErrMalformedResponse, where, v.Type)
	}
	return v.String(), nil
}
