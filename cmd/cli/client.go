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

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"image-inference/internal/dispatch"
	"image-inference/internal/model/vision"
)

func apiBaseURL(flag string) string {
	if flag != "" {
		return strings.TrimRight(flag, "/")
	}
	if u := os.Getenv("IMAGE_INFERENCE_API_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func newClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(3 * time.Minute)
}

// apiClient 经 API 服务推理，行为与本地 Dispatcher 一致：总是返回 Result
type apiClient struct {
	client   *resty.Client
	filename string
}

func newAPIClient(baseURL, imagePath string) *apiClient {
	return &apiClient{client: newClient(apiBaseURL(baseURL)), filename: filepath.Base(imagePath)}
}

type describeResponse struct {
	Backend string `json:"backend"`
	Text    string `json:"text"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

func (c *apiClient) Invoke(ctx context.Context, req vision.Request) dispatch.Result {
	var out describeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("image", c.filename, bytes.NewReader(req.Image)).
		SetMultipartFormData(map[string]string{
			"backend": req.BackendID,
			"prompt":  req.Prompt,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/api/describe")
	if err != nil {
		return dispatch.Fail(&dispatch.Error{Kind: dispatch.KindTransportError, Backend: req.BackendID, Detail: err.Error(), Err: err})
	}
	if resp.StatusCode() == http.StatusOK {
		return dispatch.Ok(out.Text)
	}
	kind := dispatch.Kind(out.Kind)
	detail := strings.TrimPrefix(out.Error, out.Kind+": ")
	if kind == "" {
		kind = dispatch.KindTransportError
		detail = fmt.Sprintf("POST /api/describe: status %d: %s", resp.StatusCode(), resp.String())
	}
	return dispatch.Fail(&dispatch.Error{Kind: kind, Backend: req.BackendID, Detail: detail})
}

func newHealthCmd(stdout io.Writer) *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "检查 API 服务健康状态",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			resp, err := newClient(apiBaseURL(apiURL)).R().
				SetContext(cmd.Context()).
				SetResult(&out).
				Get("/api/health")
			if err != nil {
				return err
			}
			if resp.StatusCode() != http.StatusOK {
				return fmt.Errorf("GET /api/health: %s", resp.String())
			}
			fmt.Fprintf(stdout, "%v\n", out["status"])
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API 服务地址（默认 $IMAGE_INFERENCE_API_URL 或 http://localhost:8080）")
	return cmd
}
