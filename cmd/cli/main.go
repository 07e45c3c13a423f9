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

// imgdesc 命令行：本地或经 API 服务描述图片，可选语音播报
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"image-inference/internal/app"
	"image-inference/pkg/config"
	"image-inference/pkg/tracing"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// errExit 命令已自行输出错误，仅需非零退出
var errExit = errors.New("exit")

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "imgdesc: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "imgdesc",
		Short:         "Describe images with remote vision models",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("config", "", "配置文件路径（默认 $IMAGE_INFERENCE_CONFIG 或 configs/app.yaml）")
	root.PersistentFlags().String("env-file", ".env", "启动时加载的 .env 文件")
	root.AddCommand(
		newDescribeCmd(stdout, stderr),
		newBackendsCmd(stdout),
		newConfigCmd(stdout),
		newHealthCmd(stdout),
		newVersionCmd(stdout),
	)
	return root
}

// loadConfig 加载 .env 与配置文件
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := app.LoadEnv(envFile); err != nil {
			return nil, err
		}
	}
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadConfig(path)
	}
	return config.Load()
}

// startTracing 按配置启用 OpenTelemetry，返回关闭函数
func startTracing(cfg *config.Config) (func(context.Context) error, error) {
	tc := cfg.Monitoring.Tracing
	endpoint := tc.ExportEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if !tc.Enable || endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	tp, err := tracing.InitTracer(tracing.OTelConfig{
		ServiceName:    tc.ServiceName,
		ExportEndpoint: endpoint,
		Insecure:       tc.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	return tp.Shutdown, nil
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "imgdesc %s\n", version)
		},
	}
}

func newConfigCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "显示配置概要",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			fmt.Fprintf(stdout, "api.port=%d\n", cfg.API.Port)
			fmt.Fprintf(stdout, "api.host=%s\n", cfg.API.Host)
			fmt.Fprintf(stdout, "model.vision.default=%s\n", cfg.Model.Vision.Default)
			fmt.Fprintf(stdout, "secrets.provider=%s\n", cfg.Secrets.Provider)
			fmt.Fprintf(stdout, "speech.enabled=%t\n", cfg.Speech.Enabled)
			gemini := "unset"
			if cfg.Model.Vision.Gemini.APIKey != "" {
				gemini = "set"
			}
			fmt.Fprintf(stdout, "model.vision.gemini.api_key=%s\n", gemini)
			return nil
		},
	}
}
