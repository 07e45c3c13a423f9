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

package dispatch

import (
	"errors"
	"fmt"
)

// Kind 失败分类，作为展示文本的前缀
type Kind string

const (
	KindUnknownBackend  Kind = "UnknownBackend"
	KindInvalidRequest  Kind = "InvalidRequest"
	KindTransportError  Kind = "TransportError"
	KindExtractionError Kind = "ExtractionError"
	KindConfigError     Kind = "ConfigError"
	KindInternalError   Kind = "InternalError"
)

// Stage 失败发生的阶段
type Stage string

const (
	StageLookup    Stage = "lookup"
	StageValidate  Stage = "validate"
	StageMarshal   Stage = "marshal"
	StageTransport Stage = "transport"
	StageCall      Stage = "call"
	StageExtract   Stage = "extract"
)

// Error 推理失败；Error() 为 "<Kind>: <detail>"
type Error struct {
	Kind    Kind
	Backend string
	Stage   Stage
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, backend string, stage Stage, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Stage: stage, Detail: err.Error(), Err: err}
}

// IsKind 判断 err 链上是否存在指定 Kind 的 *Error
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
