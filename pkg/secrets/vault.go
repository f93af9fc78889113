// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string `yaml:"address"`     // Vault 地址，如 http://vault:8200
	Token      string `yaml:"token"`       // Vault token
	PathPrefix string `yaml:"path_prefix"` // KV v2 挂载点，默认 secret
}

type vaultStore struct {
	client     *vault.Client
	pathPrefix string
	mu         sync.RWMutex
	recent     map[string]string // 本进程写入的值，Get 免一次网络往返
}

// NewVaultStore 创建 Vault secret store（KV v2 引擎）
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 vault 客户端failed: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}

	// 启动即验证连通性，避免首次取密钥时才发现配置错误
	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("连接 vault failed: %w", err)
	}

	prefix := config.PathPrefix
	if prefix == "" {
		prefix = "secret"
	}
	return &vaultStore{
		client:     client,
		pathPrefix: prefix,
		recent:     make(map[string]string),
	}, nil
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	v.mu.RLock()
	if val, ok := v.recent[key]; ok {
		v.mu.RUnlock()
		return val, nil
	}
	v.mu.RUnlock()

	secret, err := v.client.Logical().ReadWithContext(ctx, v.dataPath(key))
	if err != nil {
		return "", fmt.Errorf("读取 vault secret failed: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}

	fields := secret.Data
	// KV v2 将键值包在 data 字段内；v1 挂载直接平铺
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		fields = nested
	}
	if val, ok := fields["value"].(string); ok {
		return val, nil
	}
	for _, raw := range fields {
		if s, ok := raw.(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("secret value not found: %s", key)
}

func (v *vaultStore) Set(ctx context.Context, key string, value string) error {
	payload := map[string]interface{}{
		"data": map[string]interface{}{"value": value},
	}
	if _, err := v.client.Logical().WriteWithContext(ctx, v.dataPath(key), payload); err != nil {
		return fmt.Errorf("写入 vault secret failed: %w", err)
	}

	v.mu.Lock()
	v.recent[key] = value
	v.mu.Unlock()
	return nil
}

func (v *vaultStore) Delete(ctx context.Context, key string) error {
	if _, err := v.client.Logical().DeleteWithContext(ctx, v.dataPath(key)); err != nil {
		return fmt.Errorf("删除 vault secret failed: %w", err)
	}

	v.mu.Lock()
	delete(v.recent, key)
	v.mu.Unlock()
	return nil
}

func (v *vaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath := fmt.Sprintf("%s/metadata", v.pathPrefix)
	if prefix != "" {
		searchPath = fmt.Sprintf("%s/metadata/%s", v.pathPrefix, prefix)
	}

	secret, err := v.client.Logical().ListWithContext(ctx, searchPath)
	if err != nil {
		return nil, fmt.Errorf("列出 vault secrets failed: %w", err)
	}
	if secret == nil {
		return nil, nil
	}

	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	var keys []string
	for _, k := range raw {
		name, ok := k.(string)
		if !ok {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			name = prefix + "/" + name
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// dataPath KV v2 的读写路径：<挂载点>/data/<键>
func (v *vaultStore) dataPath(key string) string {
	return fmt.Sprintf("%s/data/%s", v.pathPrefix, key)
}
