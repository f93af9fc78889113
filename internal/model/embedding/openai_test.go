package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"course-rag/pkg/config"
)

func testEmbedder(t *testing.T, handler http.HandlerFunc, inputLimit int) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e, err := NewOpenAIEmbedder("openai",
		config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL},
		config.ModelInfo{Name: "text-embedding-3-small", Dimension: 3, InputLimit: inputLimit})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder failed: %v", err)
	}
	return e
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var gotAuth string
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// 故意乱序返回，验证按 index 还原
		type item struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		items := make([]item, len(req.Input))
		for i := range req.Input {
			items[len(req.Input)-1-i] = item{Embedding: []float64{float64(i), 0, 0}, Index: i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": items})
	}, 16)

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization header: %q", gotAuth)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float64(i) {
			t.Errorf("vector %d out of order: %v", i, v)
		}
	}
}

func TestOpenAIEmbedder_BatchSplit(t *testing.T) {
	calls := 0
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) > 2 {
			t.Errorf("batch exceeds input limit: %d", len(req.Input))
		}
		type item struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		items := make([]item, len(req.Input))
		for i := range req.Input {
			items[i] = item{Embedding: []float64{1, 2, 3}, Index: i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": items})
	}, 2)

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 5 {
		t.Errorf("expected 5 vectors, got %d", len(vectors))
	}
	if calls != 3 {
		t.Errorf("expected 3 requests, got %d", calls)
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}, 16)

	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestOpenAIEmbedder_EmptyInput(t *testing.T) {
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	}, 16)

	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("empty input: vectors=%v err=%v", vectors, err)
	}
}

func TestEinoEmbedder_Adapts(t *testing.T) {
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}, "index": 0}},
		})
	}, 16)

	adapted := NewEinoEmbedder(e)
	vectors, err := adapted.EmbedStrings(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("EmbedStrings failed: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != 3 {
		t.Errorf("unexpected vectors: %v", vectors)
	}
}
