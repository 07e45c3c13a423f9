// Copyright 2026 fanjia1024
// HashiCorp Vault secret store (KV v2)

package secrets

import (
	"context"
	stderrors "errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"image-inference/pkg/errors"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address string `mapstructure:"address"` // Vault server address (e.g., http://vault:8200)；空则读取 VAULT_ADDR
	Token   string `mapstructure:"token"`   // Vault token；空则读取 VAULT_TOKEN
	Mount   string `mapstructure:"mount"`   // KV v2 挂载路径，默认 secret
}

type vaultStore struct {
	kv *vault.KVv2
}

// NewVaultStore 创建 Vault secret store；不在创建时连接，首次 Get 时才访问 Vault
func NewVaultStore(config VaultConfig) (Store, error) {
	cfg := vault.DefaultConfig()
	if config.Address != "" {
		cfg.Address = config.Address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}

	mount := config.Mount
	if mount == "" {
		mount = "secret"
	}
	return &vaultStore{kv: client.KVv2(mount)}, nil
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := v.kv.Get(ctx, key)
	if stderrors.Is(err, vault.ErrSecretNotFound) {
		return "", errors.NotFoundf("secret %s", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}

	if data, ok := secret.Data["value"].(string); ok {
		return data, nil
	}
	// 没有 value 字段时取第一个字符串值
	for _, val := range secret.Data {
		if str, ok := val.(string); ok {
			return str, nil
		}
	}
	return "", errors.NotFoundf("secret value %s", key)
}
