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

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"course-rag/pkg/config"
)

// OpenAIEmbedder OpenAI 兼容的 Embedding 客户端
type OpenAIEmbedder struct {
	provider   string
	model      string
	apiKey     string
	baseURL    string
	dimension  int
	inputLimit int // 单次请求最多提交的文本条数
	client     *resty.Client
}

// NewOpenAIEmbedder 创建 OpenAI 兼容 Embedding 客户端；baseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIEmbedder(provider string, pc config.ProviderConfig, mi config.ModelInfo) (*OpenAIEmbedder, error) {
	baseURL := pc.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}
	inputLimit := mi.InputLimit
	if inputLimit <= 0 {
		inputLimit = 16
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(5 * time.Second)

	return &OpenAIEmbedder{
		provider:   provider,
		model:      mi.Name,
		apiKey:     pc.APIKey,
		baseURL:    baseURL,
		dimension:  mi.Dimension,
		inputLimit: inputLimit,
		client:     client,
	}, nil
}

// Embed 计算单条文本的向量
func (c *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量计算向量，超过单次请求上限时分批提交
func (c *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.inputLimit {
		end := start + c.inputLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedRequest 发送一次 /embeddings 请求
func (c *OpenAIEmbedder) embedRequest(ctx context.Context, texts []string) ([][]float64, error) {
	request := map[string]interface{}{
		"model": c.model,
		"input": texts,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(request).
		Post(c.baseURL + "/embeddings")

	if err != nil {
		return nil, fmt.Errorf("调用 OpenAI API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API 返回错误: %s", response.String())
	}

	var result struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 OpenAI 响应failed: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI API 返回结果数量不符: got %d, want %d", len(result.Data), len(texts))
	}

	// 按 index 排序，保证与输入顺序一致
	sort.Slice(result.Data, func(i, j int) bool {
		return result.Data[i].Index < result.Data[j].Index
	})
	vectors := make([][]float64, len(result.Data))
	for i, d := range result.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Dimension 返回向量维度
func (c *OpenAIEmbedder) Dimension() int { return c.dimension }

// Model 返回模型名称
func (c *OpenAIEmbedder) Model() string { return c.model }

// Provider 返回提供商名称
func (c *OpenAIEmbedder) Provider() string { return c.provider }
