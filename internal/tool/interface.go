package tool

import (
	"context"
)

// Schema 表示工具的 JSON Schema（供 LLM function-calling 使用）
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result 工具执行结果。Err 非空表示参数校验类失败，结果仍回传给模型；
// Execute 返回 error 才表示执行故障（基础设施错误），由调用方终止本轮循环。
type Result struct {
	CallID  string `json:"call_id,omitempty"`
	Content string `json:"content"`
	Err     string `json:"error,omitempty"`
}

// Failed 是否为校验失败结果
func (r Result) Failed() bool { return r.Err != "" }

// Payload 返回回传给模型的文本（校验失败时为错误信息）
func (r Result) Payload() string {
	if r.Err != "" {
		return r.Err
	}
	return r.Content
}

// Tool 工具接口
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, args map[string]any) (Result, error)
}
