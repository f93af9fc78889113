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

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"course-rag/internal/tool"
	"course-rag/pkg/metrics"
)

// Registry 工具注册表：注册、发现、参数校验与统一调度
type Registry struct {
	mu    sync.RWMutex
	names []string
	tools map[string]tool.Tool
}

// New 创建新的 Registry
func New() *Registry {
	return &Registry{
		tools: make(map[string]tool.Tool),
	}
}

// Register 注册工具，重复注册同名工具时覆盖旧实现
func (r *Registry) Register(t tool.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name()]; !ok {
		r.names = append(r.names, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get 按名称获取工具
func (r *Registry) Get(name string) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List 按注册顺序返回所有工具
func (r *Registry) List() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tool.Tool, 0, len(r.names))
	for _, name := range r.names {
		list = append(list, r.tools[name])
	}
	return list
}

// ToolSchemaForLLM 单个工具供 LLM 使用的描述（name, description, parameters）
type ToolSchemaForLLM struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  tool.Schema `json:"parameters"`
}

// SchemasForLLM 返回所有工具的 Schema 列表（JSON 序列化）
func (r *Registry) SchemasForLLM() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]ToolSchemaForLLM, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		list = append(list, ToolSchemaForLLM{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return json.Marshal(list)
}

// Execute 调度一次工具调用。
// 未知工具与参数校验失败以带内错误 Result 返回（err 为 nil），交回模型继续对话；
// 工具执行故障以非 nil error 返回，由调用方决定是否终止本轮会话。
func (r *Registry) Execute(ctx context.Context, callID, name string, args map[string]any) (tool.Result, error) {
	t, ok := r.Get(name)
	if !ok {
		metrics.ToolTotal.WithLabelValues(name, "error").Inc()
		return tool.Result{CallID: callID, Err: fmt.Sprintf("Tool '%s' not found", name)}, nil
	}
	if msg := validateArgs(t, args); msg != "" {
		metrics.ToolTotal.WithLabelValues(name, "error").Inc()
		return tool.Result{CallID: callID, Err: msg}, nil
	}

	start := time.Now()
	res, err := t.Execute(ctx, args)
	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ToolTotal.WithLabelValues(name, "fault").Inc()
		return tool.Result{}, err
	}

	res.CallID = callID
	status := "ok"
	if res.Failed() {
		status = "error"
	}
	metrics.ToolTotal.WithLabelValues(name, status).Inc()
	return res, nil
}

// validateArgs 校验必填项与声明类型，返回空串表示通过。
// 未在 Schema 中声明的多余参数直接忽略。
func validateArgs(t tool.Tool, args map[string]any) string {
	s := t.Schema()
	for _, key := range s.Required {
		if _, ok := args[key]; !ok {
			return fmt.Sprintf("Tool '%s' missing required parameter '%s'", t.Name(), key)
		}
	}
	for key, v := range args {
		prop, ok := s.Properties[key]
		if !ok {
			continue
		}
		switch prop.Type {
		case "string":
			if _, ok := v.(string); !ok {
				return fmt.Sprintf("Tool '%s' parameter '%s' must be a string", t.Name(), key)
			}
		case "integer":
			// JSON 反序列化的数字是 float64，按整数值接受
			switch n := v.(type) {
			case int:
			case int64:
			case float64:
				if n != math.Trunc(n) {
					return fmt.Sprintf("Tool '%s' parameter '%s' must be an integer", t.Name(), key)
				}
			default:
				return fmt.Sprintf("Tool '%s' parameter '%s' must be an integer", t.Name(), key)
			}
		}
	}
	return ""
}
