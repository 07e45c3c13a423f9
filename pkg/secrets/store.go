// Copyright 2026 fanjia1024
// Credential lookup abstraction

package secrets

import (
	"context"
	"fmt"
)

// Store 只读凭证来源；key 不存在时返回 errors.ErrNotFound
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider  string            `mapstructure:"provider"`   // env | memory | vault，空为 env
	EnvPrefix string            `mapstructure:"env_prefix"` // env：优先读取 <prefix><KEY>
	Values    map[string]string `mapstructure:"values"`     // memory：初始凭证
	Vault     VaultConfig       `mapstructure:"vault"`
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(config.EnvPrefix), nil
	case "memory":
		return NewMemoryStore(config.Values), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}
