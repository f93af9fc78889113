// Copyright 2026 fanjia1024
// Kubernetes secret store (mounted secret files)

package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// K8sConfig Kubernetes 配置
type K8sConfig struct {
	// SecretsPath secret 挂载目录，默认 /etc/secrets
	SecretsPath string `yaml:"secrets_path"`
}

type k8sStore struct {
	secretsPath string
	mu          sync.RWMutex
	cache       map[string]string
}

// NewK8sStore 创建 Kubernetes secret store，从挂载目录按文件名读取 secret
func NewK8sStore(config K8sConfig) (Store, error) {
	secretsPath := "/etc/secrets"
	if config.SecretsPath != "" {
		secretsPath = config.SecretsPath
	}

	if _, err := os.Stat(secretsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("kubernetes secrets path not found: %s (not running in Kubernetes?)", secretsPath)
	}

	return &k8sStore{
		secretsPath: secretsPath,
		cache:       make(map[string]string),
	}, nil
}

func (k *k8sStore) Get(ctx context.Context, key string) (string, error) {
	k.mu.RLock()
	if val, ok := k.cache[key]; ok {
		k.mu.RUnlock()
		return val, nil
	}
	k.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(k.secretsPath, key))
	if err != nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	value := strings.TrimSpace(string(data))

	k.mu.Lock()
	k.cache[key] = value
	k.mu.Unlock()
	return value, nil
}

// Set 仅写入进程内 cache；挂载的 secret 文件在 pod 内只读
func (k *k8sStore) Set(ctx context.Context, key string, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cache[key] = value
	return nil
}

func (k *k8sStore) Delete(ctx context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.cache, key)
	return nil
}

func (k *k8sStore) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(k.secretsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if prefix == "" || strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}
