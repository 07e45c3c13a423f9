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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultHubURL = "https://huggingface.co"

// GradioConfig Gradio（Hugging Face Space）传输配置
type GradioConfig struct {
	HubURL string
	// Hosts 后端 id -> 固定 host，命中时跳过 Hub 解析（自托管或测试）
	Hosts   map[string]string
	Token   string
	Timeout time.Duration
}

// GradioTransport 调用单个 Space 的 Gradio HTTP API：上传文件 -> 提交 -> 读取 SSE 结果
type GradioTransport struct {
	space  string
	hubURL string
	client *resty.Client

	mu   sync.Mutex
	host string
}

// NewGradioTransport 为后端对应的 Space 创建传输句柄；host 在首次调用时解析
func NewGradioTransport(d Descriptor, cfg GradioConfig) *GradioTransport {
	hubURL := strings.TrimRight(cfg.HubURL, "/")
	if hubURL == "" {
		hubURL = defaultHubURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	t := &GradioTransport{
		space:  d.Target,
		hubURL: hubURL,
		client: client,
	}
	if h, ok := cfg.Hosts[d.ID]; ok && h != "" {
		t.host = strings.TrimRight(h, "/")
	}
	return t
}

// Call 执行一次预测，返回 Space 的输出（单输出时解包）
func (t *GradioTransport) Call(ctx context.Context, call Call) (json.RawMessage, error) {
	host := t.resolveHost(ctx)

	data := make([]any, 0, len(call.Params))
	for _, p := range call.Params {
		switch v := p.Value.(type) {
		case *Image:
			file, err := t.upload(ctx, host, v)
			if err != nil {
				return nil, err
			}
			data = append(data, file)
		default:
			data = append(data, v)
		}
	}

	apiName := strings.TrimPrefix(call.Endpoint, "/")
	var submitted struct {
		EventID string `json:"event_id"`
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"data": data}).
		Post(host + "/gradio_api/call/" + apiName)
	if err != nil {
		return nil, fmt.Errorf("submit %s%s: %w", t.space, call.Endpoint, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("submit %s%s: status %d: %s", t.space, call.Endpoint, resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), &submitted); err != nil || submitted.EventID == "" {
		return nil, fmt.Errorf("submit %s%s: no event id in %q", t.space, call.Endpoint, resp.String())
	}

	resp, err = t.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		Get(host + "/gradio_api/call/" + apiName + "/" + submitted.EventID)
	if err != nil {
		return nil, fmt.Errorf("read result %s%s: %w", t.space, call.Endpoint, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("read result %s%s: status %d: %s", t.space, call.Endpoint, resp.StatusCode(), resp.String())
	}
	return parseGradioEvents(resp.Body())
}

func (t *GradioTransport) upload(ctx context.Context, host string, img *Image) (map[string]any, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetFileReader("files", img.Filename(), bytes.NewReader(img.Data)).
		Post(host + "/gradio_api/upload")
	if err != nil {
		return nil, fmt.Errorf("upload image to %s: %w", t.space, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("upload image to %s: status %d: %s", t.space, resp.StatusCode(), resp.String())
	}
	var paths []string
	if err := json.Unmarshal(resp.Body(), &paths); err != nil || len(paths) == 0 {
		return nil, fmt.Errorf("upload image to %s: unexpected response %q", t.space, resp.String())
	}
	return map[string]any{
		"path":      paths[0],
		"orig_name": img.Filename(),
		"mime_type": img.MIME,
		"size":      len(img.Data),
		"meta":      map[string]string{"_type": "gradio.FileData"},
	}, nil
}

// resolveHost 通过 Hub 查询 Space 的直连地址；仅缓存 Hub 成功返回的结果，失败时本次按命名规则推导
func (t *GradioTransport) resolveHost(ctx context.Context) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.host != "" {
		return t.host
	}

	var out struct {
		Host string `json:"host"`
	}
	resp, err := t.client.R().
		SetContext(ctx).
		Get(t.hubURL + "/api/spaces/" + t.space + "/host")
	if err == nil && resp.StatusCode() == http.StatusOK {
		if json.Unmarshal(resp.Body(), &out) == nil && out.Host != "" {
			t.host = strings.TrimRight(out.Host, "/")
			return t.host
		}
	}
	return spaceHost(t.space)
}

// spaceHost maxiw/Phi-3.5-vision -> https://maxiw-phi-3-5-vision.hf.space
func spaceHost(space string) string {
	sub := strings.ToLower(space)
	sub = strings.NewReplacer("/", "-", ".", "-", "_", "-").Replace(sub)
	return "https://" + sub + ".hf.space"
}

// parseGradioEvents 读取 SSE 流，直到 complete 或 error 事件
func parseGradioEvents(body []byte) (json.RawMessage, error) {
	var event string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				return unwrapOutputs(data), nil
			case "error":
				return nil, fmt.Errorf("space reported an error: %s", gradioErrorText(data))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	return nil, errors.New("event stream ended without a result")
}

// unwrapOutputs 单输出端点返回该输出本身，与 gradio_client.predict 一致
func unwrapOutputs(data string) json.RawMessage {
	outputs := gjson.Parse(data)
	if outputs.IsArray() {
		if items := outputs.Array(); len(items) == 1 {
			return json.RawMessage(items[0].Raw)
		}
	}
	return json.RawMessage(data)
}

func gradioErrorText(data string) string {
	v := gjson.Parse(data)
	switch {
	case data == "" || v.Type == gjson.Null:
		return "upstream application error"
	case v.Type == gjson.String:
		return v.String()
	default:
		return data
	}
}
