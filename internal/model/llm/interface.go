package llm

import (
	"context"
	"fmt"

	"course-rag/internal/tool"
	"course-rag/pkg/config"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message 对话消息。助手消息可携带工具调用，工具消息通过 ToolCallID 回指对应调用。
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall 模型发起的一次工具调用，Arguments 为 JSON 字符串
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition 提供给模型的工具声明
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  tool.Schema
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Temperature *float32         // nil 使用模型默认温度
	MaxTokens   int              // <=0 使用模型默认上限
	Tools       []ToolDefinition // 为空则本次调用不提供任何工具
}

// Client LLM 客户端接口
type Client interface {
	// Chat 执行一次对话生成，返回助手消息（可能携带工具调用）
	Chat(ctx context.Context, messages []Message, options GenerateOptions) (*Message, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// SystemMessage 构造系统消息
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage 构造用户消息
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage 构造助手消息
func AssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

// ToolMessage 构造工具结果消息，callID 回指模型发起的调用
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// NewClient 创建 LLM 客户端；根据 defaults.llm（provider.model_key）解析提供商与模型。
// openai / qwen / deepseek 等 OpenAI 兼容端点统一走 eino 的 openai 组件，由 base_url 区分。
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	provider, modelKey, err := config.ParseModelKey(cfg.Model.Defaults.LLM)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Model.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("LLM provider %q not configured", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("LLM model %q not configured in provider %q", modelKey, provider)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("LLM provider %q api_key not configured", provider)
	}
	return newEinoClient(ctx, provider, pc, mi)
}
