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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"image-inference/pkg/log"
	"image-inference/pkg/secrets"
)

// DefaultPath 默认配置文件路径，可用 IMAGE_INFERENCE_CONFIG 覆盖
const DefaultPath = "configs/app.yaml"

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Model      ModelConfig      `mapstructure:"model"`
	Secrets    secrets.Config   `mapstructure:"secrets"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Log        log.Config       `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	Vision VisionConfig `mapstructure:"vision"`
}

// VisionConfig 视觉后端配置
type VisionConfig struct {
	Default string       `mapstructure:"default"` // 默认后端 id
	Gradio  GradioConfig `mapstructure:"gradio"`
	Gemini  GeminiConfig `mapstructure:"gemini"`
}

// GradioConfig Hugging Face Space 访问配置
type GradioConfig struct {
	HubURL  string            `mapstructure:"hub_url"`
	Hosts   map[string]string `mapstructure:"hosts"` // 后端 id -> host，覆盖 Hub 解析
	Token   string            `mapstructure:"token"`
	Timeout string            `mapstructure:"timeout"` // 如 "120s"
}

// GeminiConfig Gemini 访问配置；api_key 留空时首次使用从 secrets 读取 GEMINI_API_KEY
type GeminiConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout string `mapstructure:"timeout"`
}

// SpeechConfig 语音播报配置
type SpeechConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Command string   `mapstructure:"command"` // 空则依次探测 espeak-ng / espeak / say
	Args    []string `mapstructure:"args"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// RateLimitsConfig 限流配置（按后端 id）
type RateLimitsConfig struct {
	Backends map[string]BackendRateLimitConfig `mapstructure:"backends"`
}

// BackendRateLimitConfig 单个后端的限流配置
type BackendRateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.max_upload_mb", 10)
	v.SetDefault("model.vision.default", "docmatix")
	v.SetDefault("model.vision.gradio.hub_url", "https://huggingface.co")
	v.SetDefault("model.vision.gradio.timeout", "120s")
	v.SetDefault("model.vision.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("model.vision.gemini.timeout", "60s")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("monitoring.tracing.service_name", "image-inference")
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// Default 无配置文件时使用的默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// Load 加载 IMAGE_INFERENCE_CONFIG 或 DefaultPath；默认路径不存在时退回 Default()
func Load() (*Config, error) {
	if path := os.Getenv("IMAGE_INFERENCE_CONFIG"); path != "" {
		return LoadConfig(path)
	}
	if _, err := os.Stat(DefaultPath); err != nil {
		cfg := Default()
		replaceEnvVars(cfg)
		return cfg, nil
	}
	return LoadConfig(DefaultPath)
}

// replaceEnvVars 替换 ${VAR} 形式的凭证配置
func replaceEnvVars(config *Config) {
	config.Model.Vision.Gemini.APIKey = expandEnv(config.Model.Vision.Gemini.APIKey)
	config.Model.Vision.Gradio.Token = expandEnv(config.Model.Vision.Gradio.Token)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
}

func expandEnv(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
	envVar = strings.TrimPrefix(envVar, "$")
	return os.Getenv(envVar)
}

// ParseDuration 解析时长，空或非法时返回 def
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
