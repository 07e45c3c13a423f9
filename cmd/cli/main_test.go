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
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	path := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func fakeDocmatixSpace(t *testing.T, result string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/gradio_api/upload", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `["/tmp/gradio/x/image.png"]`)
	})
	mux.HandleFunc("/gradio_api/call/process_image", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"event_id":"e1"}`)
	})
	mux.HandleFunc("/gradio_api/call/process_image/e1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "event: complete\ndata: [{\"text_input_result\": %q}]\n\n", result)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--env-file", ""}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "imgdesc dev\n", out)
}

func TestBackends(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "model:\n  vision:\n    default: gemini\n")
	code, out, stderr := runCLI(t, "", "--config", cfg, "backends")
	require.Equal(t, 0, code, stderr)
	for _, want := range []string{"ID", "docmatix", "phi-vision", "gemini", "GEMINI_API_KEY", "maxiw/Phi-3.5-vision"} {
		assert.Contains(t, out, want)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "gemini") {
			assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "*"), line)
		}
	}
}

func TestConfig_HidesAPIKey(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "model:\n  vision:\n    gemini:\n      api_key: secret-value\n")
	code, out, _ := runCLI(t, "", "--config", cfg, "config")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "model.vision.gemini.api_key=set")
	assert.NotContains(t, out, "secret-value")
}

func TestDescribe_Local(t *testing.T) {
	dir := t.TempDir()
	srv := fakeDocmatixSpace(t, "A cat sitting on a windowsill.")
	cfg := writeConfig(t, dir, fmt.Sprintf("model:\n  vision:\n    default: docmatix\n    gradio:\n      hosts:\n        docmatix: %q\nlog:\n  level: error\n", srv.URL))

	code, out, stderr := runCLI(t, "", "--config", cfg, "describe", "--image", writePNG(t, dir))
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "A cat sitting on a windowsill.\n", out)
}

func TestDescribe_EmptyResultWarns(t *testing.T) {
	dir := t.TempDir()
	srv := fakeDocmatixSpace(t, "")
	cfg := writeConfig(t, dir, fmt.Sprintf("model:\n  vision:\n    gradio:\n      hosts:\n        docmatix: %q\nlog:\n  level: error\n", srv.URL))

	code, out, stderr := runCLI(t, "", "--config", cfg, "describe", "--image", writePNG(t, dir), "--backend", "docmatix")
	require.Equal(t, 0, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "No result to speak.")
}

func TestDescribe_UnknownBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "log:\n  level: error\n")
	code, _, stderr := runCLI(t, "", "--config", cfg, "describe", "--image", writePNG(t, dir), "--backend", "unknown-model")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error: UnknownBackend: unknown-model")
}

func TestDescribe_Interactive(t *testing.T) {
	dir := t.TempDir()
	srv := fakeDocmatixSpace(t, "A cat.")
	cfg := writeConfig(t, dir, fmt.Sprintf("model:\n  vision:\n    gradio:\n      hosts:\n        docmatix: %q\nlog:\n  level: error\n", srv.URL))

	code, out, _ := runCLI(t, "What colour is it?\n\n", "--config", cfg, "describe", "--image", writePNG(t, dir), "--interactive")
	require.Equal(t, 0, code)
	assert.Equal(t, "A cat.\nA cat.\n", out)
}

func TestDescribe_InteractiveReportsFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "log:\n  level: error\n")

	code, out, stderr := runCLI(t, "again\n\n", "--config", cfg, "describe", "--image", writePNG(t, dir), "--backend", "unknown-model", "--interactive")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Equal(t, 2, strings.Count(stderr, "Error: UnknownBackend: unknown-model"))
}

func TestDescribe_RejectsFileType(t *testing.T) {
	code, _, stderr := runCLI(t, "", "describe", "--image", "notes.txt")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported file type")
}

func TestDescribe_Remote(t *testing.T) {
	dir := t.TempDir()
	var gotBackend, gotPrompt string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/describe", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotBackend, gotPrompt = r.FormValue("backend"), r.FormValue("prompt")
		w.Header().Set("Content-Type", "application/json")
		if gotBackend == "phi-vision" {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"backend": gotBackend, "error": "TransportError: connection refused", "kind": "TransportError"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"backend": gotBackend, "text": "remote text"})
	}))
	defer api.Close()
	cfg := writeConfig(t, dir, "log:\n  level: error\n")
	img := writePNG(t, dir)

	code, out, stderr := runCLI(t, "", "--config", cfg, "describe", "--image", img, "--api-url", api.URL)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "remote text\n", out)
	assert.Equal(t, "docmatix", gotBackend)
	assert.Equal(t, "Describe the image for a blind person.", gotPrompt)

	code, _, stderr = runCLI(t, "", "--config", cfg, "describe", "--image", img, "--api-url", api.URL, "--backend", "phi-vision")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error: TransportError: connection refused")
}

func TestHealth(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer api.Close()

	code, out, _ := runCLI(t, "", "health", "--api-url", api.URL)
	require.Equal(t, 0, code)
	assert.Equal(t, "ok\n", out)
}
