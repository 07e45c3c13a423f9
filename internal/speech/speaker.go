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

package speech

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	"image-inference/pkg/log"
)

// Speaker 文本播报；尽力而为，失败不影响调用方
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// Config 播报配置
type Config struct {
	Enabled bool
	Command string   // 空则依次探测 DefaultCommands
	Args    []string // 追加在文本之前的参数
}

// DefaultCommands 未指定命令时探测的语音引擎
var DefaultCommands = []string{"espeak-ng", "espeak", "say"}

// ErrNoEngine 找不到可用的语音引擎
var ErrNoEngine = errors.New("no speech engine found")

// Nop 不播报
type Nop struct{}

func (Nop) Speak(context.Context, string) {}

// CommandSpeaker 通过外部命令播报，同一时刻只播一句
type CommandSpeaker struct {
	path   string
	args   []string
	logger *log.Logger

	mu sync.Mutex
}

// New 按配置创建 Speaker；未启用或找不到引擎时返回 Nop
func New(cfg Config, logger *log.Logger) Speaker {
	if logger == nil {
		logger = log.Discard()
	}
	if !cfg.Enabled {
		return Nop{}
	}
	s, err := NewCommandSpeaker(cfg.Command, cfg.Args, logger)
	if err != nil {
		logger.Warn("语音播报不可用", "error", err)
		return Nop{}
	}
	return s
}

// NewCommandSpeaker 查找语音引擎；command 为空时依次探测 DefaultCommands
func NewCommandSpeaker(command string, args []string, logger *log.Logger) (*CommandSpeaker, error) {
	candidates := DefaultCommands
	if command != "" {
		candidates = []string{command}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return &CommandSpeaker{path: path, args: args, logger: logger}, nil
		}
	}
	return nil, ErrNoEngine
}

// Speak 阻塞直到播报结束；失败只记 debug 日志
func (s *CommandSpeaker) Speak(ctx context.Context, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// 文本经 stdin 传入，以 "-" 开头的文本不会被当作引擎参数
	cmd := exec.CommandContext(ctx, s.path, s.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		s.logger.Debug("语音播报失败", "engine", s.path, "error", err, "output", string(out))
	}
}
