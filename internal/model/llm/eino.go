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

package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"course-rag/pkg/config"
	"course-rag/pkg/metrics"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient 基于 eino ChatModel 的 LLM 客户端，通过 WithTools 支持工具调用
type EinoClient struct {
	provider  string
	modelName string
	base      model.ToolCallingChatModel

	// 绑定工具后的模型实例按工具集指纹缓存，避免每次调用重复绑定
	mu       sync.Mutex
	bound    model.ToolCallingChatModel
	boundKey string
}

// newEinoClient 基于 provider 配置创建 OpenAI 兼容的 ChatModel
func newEinoClient(ctx context.Context, provider string, pc config.ProviderConfig, mi config.ModelInfo) (*EinoClient, error) {
	cmCfg := &openai.ChatModelConfig{
		Model:   mi.Name,
		APIKey:  pc.APIKey,
		Timeout: 60 * time.Second,
	}
	if pc.BaseURL != "" {
		cmCfg.BaseURL = pc.BaseURL
	}
	if mi.MaxTokens > 0 {
		mt := mi.MaxTokens
		cmCfg.MaxTokens = &mt
	}
	if mi.Temperature > 0 {
		t := float32(mi.Temperature)
		cmCfg.Temperature = &t
	}

	cm, err := openai.NewChatModel(ctx, cmCfg)
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return &EinoClient{provider: provider, modelName: mi.Name, base: cm}, nil
}

// Chat 执行一次对话生成。options.Tools 为空时本次调用不携带任何工具。
func (c *EinoClient) Chat(ctx context.Context, messages []Message, options GenerateOptions) (*Message, error) {
	m := c.base
	if len(options.Tools) > 0 {
		bound, err := c.withTools(options.Tools)
		if err != nil {
			return nil, err
		}
		m = bound
	}

	var callOpts []model.Option
	if options.Temperature != nil {
		callOpts = append(callOpts, model.WithTemperature(*options.Temperature))
	}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, model.WithMaxTokens(options.MaxTokens))
	}

	out, err := m.Generate(ctx, toEinoMessages(messages), callOpts...)
	if err != nil {
		metrics.ModelCallTotal.WithLabelValues(c.provider, "error").Inc()
		return nil, fmt.Errorf("调用模型 %s failed: %w", c.modelName, err)
	}
	metrics.ModelCallTotal.WithLabelValues(c.provider, "ok").Inc()
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		metrics.LLMTokensTotal.WithLabelValues("prompt").Add(float64(out.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues("completion").Add(float64(out.ResponseMeta.Usage.CompletionTokens))
	}
	return fromEinoMessage(out), nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string { return c.modelName }

// Provider 返回提供商名称
func (c *EinoClient) Provider() string { return c.provider }

// withTools 返回绑定了指定工具集的模型实例，同一工具集复用缓存
func (c *EinoClient) withTools(defs []ToolDefinition) (model.ToolCallingChatModel, error) {
	key := toolsFingerprint(defs)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound != nil && c.boundKey == key {
		return c.bound, nil
	}

	infos := make([]*schema.ToolInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, toToolInfo(d))
	}
	bound, err := c.base.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("绑定工具failed: %w", err)
	}
	c.bound = bound
	c.boundKey = key
	return bound, nil
}

func toolsFingerprint(defs []ToolDefinition) string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return strings.Join(names, ",")
}

// toToolInfo 将工具声明转换为 eino 的 ToolInfo
func toToolInfo(d ToolDefinition) *schema.ToolInfo {
	required := make(map[string]bool, len(d.Parameters.Required))
	for _, k := range d.Parameters.Required {
		required[k] = true
	}
	params := make(map[string]*schema.ParameterInfo, len(d.Parameters.Properties))
	for name, prop := range d.Parameters.Properties {
		params[name] = &schema.ParameterInfo{
			Type:     toDataType(prop.Type),
			Desc:     prop.Description,
			Required: required[name],
		}
	}
	return &schema.ToolInfo{
		Name:        d.Name,
		Desc:        d.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

func toDataType(t string) schema.DataType {
	switch t {
	case "integer":
		return schema.Integer
	case "number":
		return schema.Number
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}

// toEinoMessages 将对话消息转换为 eino schema 消息
func toEinoMessages(msgs []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		em := &schema.Message{Content: m.Content}
		switch m.Role {
		case RoleSystem:
			em.Role = schema.System
		case RoleAssistant:
			em.Role = schema.Assistant
			for _, tc := range m.ToolCalls {
				em.ToolCalls = append(em.ToolCalls, schema.ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: schema.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		case RoleTool:
			em.Role = schema.Tool
			em.ToolCallID = m.ToolCallID
		default:
			em.Role = schema.User
		}
		out = append(out, em)
	}
	return out
}

// fromEinoMessage 将模型回复转换为对话消息
func fromEinoMessage(m *schema.Message) *Message {
	out := &Message{Role: RoleAssistant, Content: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
