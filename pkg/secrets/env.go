// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"os"
	"strings"

	"image-inference/pkg/errors"
)

// EnvStore 从进程环境读取凭证；配置 prefix 时 <prefix><KEY> 优先于 <KEY>
type EnvStore struct {
	prefix string
}

// NewEnvStore 创建环境变量 secret store
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: strings.ToUpper(prefix)}
}

// Get 读取凭证；仅含空白的值视为未设置（.env 行尾空格）
func (e *EnvStore) Get(ctx context.Context, key string) (string, error) {
	names := []string{key}
	if e.prefix != "" {
		names = []string{e.prefix + key, key}
	}
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value, nil
		}
	}
	return "", errors.NotFoundf("environment variable %s", strings.Join(names, " / "))
}
