// Copyright 2026 fanjia1024
// In-memory secret store (tests and local runs)

package secrets

import (
	"context"
	"strings"
	"sync"

	"image-inference/pkg/errors"
)

// MemoryStore 进程内凭证；key 不区分大小写（viper 会把配置中的 key 转为小写）
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore 以 values 为初始内容创建内存 store
func NewMemoryStore(values map[string]string) *MemoryStore {
	m := &MemoryStore{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[strings.ToLower(k)] = v
	}
	return m
}

// Get 读取凭证
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[strings.ToLower(key)]
	if !ok || value == "" {
		return "", errors.NotFoundf("secret %s", key)
	}
	return value, nil
}
