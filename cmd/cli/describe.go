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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"image-inference/internal/app"
	"image-inference/internal/model/vision"
	"image-inference/internal/narrate"
	"image-inference/internal/speech"
	"image-inference/pkg/config"
)

type describeOptions struct {
	image       string
	backend     string
	prompt      string
	speak       bool
	interactive bool
	apiURL      string
}

func newDescribeCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &describeOptions{}
	cmd := &cobra.Command{
		Use:   "describe --image <file>",
		Short: "Describe an image",
		Long: `Send an image and a prompt to a vision backend and print the description.

Accepted image types: png, jpg, jpeg, bmp. With --speak the cues and the
result are read aloud; with --interactive further prompts for the same
image are read from stdin until an empty line.

Examples:
  imgdesc describe --image cat.png
  imgdesc describe --image cat.png --backend gemini --prompt "What colour is the cat?"
  imgdesc describe --image cat.png --api-url http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, stdout, stderr, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.image, "image", "i", "", "图片文件（png/jpg/jpeg/bmp）")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "后端 id（默认取 model.vision.default）")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", narrate.DefaultPrompt, "提示词")
	cmd.Flags().BoolVar(&opts.speak, "speak", false, "语音播报提示语与结果")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "对同一图片继续从 stdin 读取提示词")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "经 API 服务调用（如 http://localhost:8080），不在本地调用后端")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func runDescribe(cmd *cobra.Command, stdout, stderr io.Writer, opts *describeOptions) error {
	if !vision.AcceptsUpload(opts.image) {
		return fmt.Errorf("unsupported file type %q, accepted: png, jpg, jpeg, bmp", opts.image)
	}
	image, err := os.ReadFile(opts.image)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	var invoker narrate.Invoker
	if opts.apiURL != "" {
		invoker = newAPIClient(opts.apiURL, opts.image)
	} else {
		shutdown, err := startTracing(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()

		b, err := app.NewBootstrap(cfg)
		if err != nil {
			return fmt.Errorf("初始化失败: %w", err)
		}
		invoker = b.Dispatcher
	}
	backend := opts.backend
	if backend == "" {
		backend = cfg.Model.Vision.Default
	}

	session := narrate.NewSession(invoker, newSpeaker(cfg, opts.speak), nil)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	session.ImageUploaded(ctx)

	submit := func(prompt string) bool {
		out := session.Submit(ctx, vision.Request{BackendID: backend, Image: image, Prompt: prompt})
		if !out.Result.OK() {
			fmt.Fprintf(stderr, "Error: %s\n", out.Result.Message())
			return false
		}
		if out.Warning != "" {
			fmt.Fprintf(stderr, "warning: %s\n", out.Warning)
			return true
		}
		fmt.Fprintln(stdout, out.Result.Text)
		return true
	}

	ok := submit(opts.prompt)
	if !opts.interactive {
		if !ok {
			return errExit
		}
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(stderr, "prompt> ")
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			break
		}
		if !submit(prompt) {
			ok = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !ok {
		return errExit
	}
	return nil
}

func newSpeaker(cfg *config.Config, force bool) speech.Speaker {
	if !force && !cfg.Speech.Enabled {
		return speech.Nop{}
	}
	return speech.New(speech.Config{
		Enabled: true,
		Command: cfg.Speech.Command,
		Args:    cfg.Speech.Args,
	}, nil)
}
