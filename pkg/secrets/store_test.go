package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewStore_Memory(t *testing.T) {
	s, err := NewStore(Config{Provider: "memory"})
	if err != nil {
		t.Fatalf("NewStore memory: %v", err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "k")
	if err != nil || v != "v" {
		t.Errorf("Get: v=%q err=%v", v, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err == nil {
		t.Error("Get after Delete should error")
	}
}

func TestNewStore_MemorySeeded(t *testing.T) {
	s, err := NewStore(Config{
		Provider: "memory",
		Config:   map[string]string{"model/llm/openai/api_key": "sk-dev"},
	})
	if err != nil {
		t.Fatalf("NewStore memory: %v", err)
	}
	v, err := s.Get(context.Background(), "model/llm/openai/api_key")
	if err != nil || v != "sk-dev" {
		t.Errorf("seeded Get: v=%q err=%v", v, err)
	}
}

func TestNewStore_DefaultIsMemory(t *testing.T) {
	s, err := NewStore(Config{})
	if err != nil {
		t.Fatalf("NewStore default: %v", err)
	}
	if s == nil {
		t.Fatal("NewStore default should return store")
	}
}

func TestNewStore_Unsupported(t *testing.T) {
	_, err := NewStore(Config{Provider: "etcd"})
	if err == nil {
		t.Error("NewStore with unknown provider should error")
	}
}

func TestEnvStore(t *testing.T) {
	s := NewEnvStore()
	ctx := context.Background()
	t.Setenv("COURSE_RAG_TEST_SECRET", "s3cret")
	v, err := s.Get(ctx, "COURSE_RAG_TEST_SECRET")
	if err != nil || v != "s3cret" {
		t.Errorf("Get: v=%q err=%v", v, err)
	}
	if _, err := s.Get(ctx, "COURSE_RAG_TEST_MISSING"); err == nil {
		t.Error("Get unset variable should error")
	}
	keys, err := s.List(ctx, "COURSE_RAG_TEST_")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, k := range keys {
		if k == "COURSE_RAG_TEST_SECRET" {
			found = true
		}
	}
	if !found {
		t.Errorf("List should contain COURSE_RAG_TEST_SECRET, got %v", keys)
	}
}

func TestEnvStore_PathKey(t *testing.T) {
	s := NewEnvStore()
	ctx := context.Background()

	// 路径式键按环境变量命名规范化后查找
	t.Setenv("MODEL_LLM_OPENAI_API_KEY", "sk-env")
	v, err := s.Get(ctx, "model/llm/openai/api_key")
	if err != nil || v != "sk-env" {
		t.Errorf("Get path key: v=%q err=%v", v, err)
	}

	// Set/Get 以路径式键往返
	t.Setenv("MODEL_LLM_QWEN_API_KEY", "")
	if err := s.Set(ctx, "model/llm/qwen/api_key", "sk-set"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err = s.Get(ctx, "model/llm/qwen/api_key")
	if err != nil || v != "sk-set" {
		t.Errorf("Get after Set: v=%q err=%v", v, err)
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("model/embedding/openai/api_key"); got != "MODEL_EMBEDDING_OPENAI_API_KEY" {
		t.Errorf("envKey: %q", got)
	}
}

func TestK8sStore_MountedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "api-key"), []byte("abc\n"), 0600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}
	s, err := NewK8sStore(K8sConfig{SecretsPath: dir})
	if err != nil {
		t.Fatalf("NewK8sStore: %v", err)
	}
	ctx := context.Background()
	v, err := s.Get(ctx, "api-key")
	if err != nil || v != "abc" {
		t.Errorf("Get: v=%q err=%v (value should be trimmed)", v, err)
	}
	if _, err := s.Get(ctx, "missing"); err == nil {
		t.Error("Get missing secret should error")
	}
	keys, err := s.List(ctx, "api")
	if err != nil || len(keys) != 1 {
		t.Errorf("List: keys=%v err=%v", keys, err)
	}
}

func TestK8sStore_PathNotFound(t *testing.T) {
	_, err := NewK8sStore(K8sConfig{SecretsPath: "/nonexistent/secrets/path"})
	if err == nil {
		t.Error("NewK8sStore with missing path should error")
	}
}
