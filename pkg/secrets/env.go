// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store。
// 路径式键（model/llm/openai/api_key）按环境变量命名习惯规范化后查找
// （MODEL_LLM_OPENAI_API_KEY），字面同名的变量优先。
func NewEnvStore() Store {
	return &envStore{}
}

// envKey 路径式 secret 键到环境变量名：大写，/ . - 折算为下划线
func envKey(key string) string {
	return strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(strings.ToUpper(key))
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	if value := os.Getenv(envKey(key)); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("environment variable not set: %s (or %s)", key, envKey(key))
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(envKey(key), value)
}

func (e *envStore) Delete(ctx context.Context, key string) error {
	if err := os.Unsetenv(envKey(key)); err != nil {
		return err
	}
	return os.Unsetenv(key)
}

func (e *envStore) List(ctx context.Context, prefix string) ([]string, error) {
	want := envKey(prefix)
	var keys []string
	for _, env := range os.Environ() {
		name, _, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(name, prefix) || (want != "" && strings.HasPrefix(name, want)) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}
