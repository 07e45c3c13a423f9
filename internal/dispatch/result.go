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

// Result 一次推理的结果：成功文本或失败，二者必居其一
type Result struct {
	Text string
	Err  *Error
}

// Ok 成功结果；空文本同样视为成功
func Ok(text string) Result {
	return Result{Text: text}
}

// Fail 失败结果
func Fail(err *Error) Result {
	return Result{Err: err}
}

// OK 是否成功
func (r Result) OK() bool {
	return r.Err == nil
}

// Message 供展示或播报的文本：成功时为结果文本，失败时为 "<Kind>: <detail>"
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Text
}
