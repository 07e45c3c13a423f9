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

package narrate

import (
	"context"
	"sync"

	"image-inference/internal/dispatch"
	"image-inference/internal/model/vision"
	"image-inference/internal/speech"
	"image-inference/pkg/log"
)

// DefaultPrompt 默认提示词
const DefaultPrompt = "Describe the image for a blind person."

// 播报提示语
const (
	CueUploaded  = "Image uploaded successfully!"
	CueSubmitted = "Image submitted for interpretation..."
	CueWait      = "Please wait..."
	// WarnNothingToSpeak 结果为空时展示的提示，不播报
	WarnNothingToSpeak = "No result to speak."
)

// Invoker 执行推理（dispatch.Dispatcher 满足该接口）
type Invoker interface {
	Invoke(ctx context.Context, req vision.Request) dispatch.Result
}

// Outcome 一次提交的结果；Warning 非空时应展示给用户
type Outcome struct {
	Result  dispatch.Result
	Warning string
}

// Session 一个用户会话：上传提示只播一次，提交时依次播报提示语与结果
type Session struct {
	invoker Invoker
	speaker speech.Speaker
	logger  *log.Logger

	mu      sync.Mutex
	greeted bool
}

// NewSession 创建会话；speaker 为 nil 时不播报
func NewSession(invoker Invoker, speaker speech.Speaker, logger *log.Logger) *Session {
	if speaker == nil {
		speaker = speech.Nop{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Session{invoker: invoker, speaker: speaker, logger: logger}
}

// ImageUploaded 首次上传图片时播报确认，返回本次是否播报
func (s *Session) ImageUploaded(ctx context.Context) bool {
	s.mu.Lock()
	first := !s.greeted
	s.greeted = true
	s.mu.Unlock()

	if first {
		s.speaker.Speak(ctx, CueUploaded)
	}
	return first
}

// Submit 播报提交提示，执行推理并播报结果
func (s *Session) Submit(ctx context.Context, req vision.Request) Outcome {
	s.speaker.Speak(ctx, CueSubmitted)
	s.speaker.Speak(ctx, CueWait)

	res := s.invoker.Invoke(ctx, req)
	msg := res.Message()
	if msg == "" {
		s.logger.Info("结果为空，跳过播报", "backend", req.BackendID)
		return Outcome{Result: res, Warning: WarnNothingToSpeak}
	}
	s.speaker.Speak(ctx, msg)
	return Outcome{Result: res}
}
