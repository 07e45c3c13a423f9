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
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
)

// ErrUnsupportedImage 上传的不是 png/jpeg/bmp
var ErrUnsupportedImage = errors.New("unsupported image format")

// UploadExtensions 允许上传的文件扩展名
var UploadExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// AcceptsUpload 按扩展名判断是否允许上传（不区分大小写）
func AcceptsUpload(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range UploadExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Image 归一化后的图片
type Image struct {
	Data []byte
	MIME string
	Ext  string
}

// Filename 上传时使用的文件名
func (i *Image) Filename() string {
	return "image" + i.Ext
}

// NormalizeImage 识别图片格式；BMP 转为 PNG（远端服务普遍不接受 BMP）
func NormalizeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/png"):
		return &Image{Data: data, MIME: "image/png", Ext: ".png"}, nil
	case mt.Is("image/jpeg"):
		return &Image{Data: data, MIME: "image/jpeg", Ext: ".jpg"}, nil
	case mt.Is("image/bmp"):
		img, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decode bmp: %v", ErrUnsupportedImage, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("re-encode bmp as png: %w", err)
		}
		return &Image{Data: buf.Bytes(), MIME: "image/png", Ext: ".png"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}
}
