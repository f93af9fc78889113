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

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"course-rag/internal/model/llm"
	"course-rag/internal/tool"
	"course-rag/internal/tool/registry"
	"course-rag/pkg/config"
	pkgerrors "course-rag/pkg/errors"
	"course-rag/pkg/log"
	"course-rag/pkg/metrics"
	"course-rag/pkg/tracing"
)

// 单次提问的终止原因
const (
	TerminationNoToolUse = "no_tool_use" // 模型未再发起工具调用，回答即最终结果
	TerminationMaxRounds = "max_rounds"  // 工具轮数用尽，经收尾调用作答
	TerminationToolError = "tool_error"  // 工具执行故障，提前收尾作答
)

// Answer 单次提问的结果。Sources 只反映本次提问中工具实际检索到的来源。
type Answer struct {
	Text        string        `json:"text"`
	Sources     []tool.Source `json:"sources,omitempty"`
	Rounds      int           `json:"rounds"`
	ModelCalls  int           `json:"model_calls"`
	Termination string        `json:"termination"`
	Duration    time.Duration `json:"duration"`
}

// Orchestrator 有界的顺序工具调用循环。
// 每次提问最多 maxRounds 轮工具调用，轮内请求按顺序同步执行；
// 轮数用尽或出现执行故障时做一次不带工具定义的收尾调用，
// 模型无法再发起新一轮，循环必然有界终止。
type Orchestrator struct {
	client   llm.Client
	registry *registry.Registry
	recorder *tool.SourceRecorder
	logger   *log.Logger

	maxRounds   int
	maxTokens   int
	temperature float32
	closing     string
}

// New 创建 Orchestrator。cfg 零值时轮数默认 2、单次生成上限默认 800 token、温度 0。
func New(client llm.Client, reg *registry.Registry, recorder *tool.SourceRecorder, cfg config.AgentConfig, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Nop()
	}
	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 2
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &Orchestrator{
		client:      client,
		registry:    reg,
		recorder:    recorder,
		logger:      logger,
		maxRounds:   maxRounds,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		closing:     cfg.ClosingInstruction,
	}
}

// Answer 处理一次提问。history 为只读的既往对话，本次对话消息由 Orchestrator 独占持有。
// 模型传输故障以 ErrGeneration 包装返回，调用方据此呈现失败而非臆造的回答。
func (o *Orchestrator) Answer(ctx context.Context, query string, history []llm.Message) (*Answer, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query 为空", pkgerrors.ErrInvalidArg)
	}

	// 来源在每次提问开始前清空一次，Snapshot 只含本次提问的记录
	o.recorder.Reset()

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.SystemMessage(SystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, llm.UserMessage(query))

	defs := o.toolDefinitions()
	modelCalls := 0

	for round := 1; ; round++ {
		rctx, roundSpan := tracing.StartRoundSpan(ctx, round)
		resp, err := o.chat(rctx, messages, defs)
		modelCalls++
		if err != nil {
			roundSpan.End()
			return nil, o.failed(start, err)
		}
		if len(resp.ToolCalls) == 0 {
			roundSpan.End()
			o.logger.Info("模型未发起工具调用，直接作答", "round", round, "model_calls", modelCalls)
			return o.done(start, resp.Content, round-1, modelCalls, TerminationNoToolUse), nil
		}

		messages = append(messages, *resp)
		var faulted bool
		messages, faulted = o.executeRound(rctx, round, resp.ToolCalls, messages)
		roundSpan.End()

		if faulted {
			return o.finalAnswer(ctx, start, query, messages, round, modelCalls, TerminationToolError)
		}
		if round == o.maxRounds {
			return o.finalAnswer(ctx, start, query, messages, round, modelCalls, TerminationMaxRounds)
		}
	}
}

// executeRound 依请求顺序同步执行一轮工具调用，每个请求恰好追加一条结果消息。
// 返回是否出现执行故障；故障后剩余请求不再执行，各补一条未执行的错误结果。
func (o *Orchestrator) executeRound(ctx context.Context, round int, calls []llm.ToolCall, messages []llm.Message) ([]llm.Message, bool) {
	faulted := false
	for _, call := range calls {
		if faulted {
			messages = append(messages, llm.ToolMessage(call.ID,
				fmt.Sprintf("Tool '%s' was not executed because an earlier tool call in this round failed", call.Name)))
			continue
		}

		args, err := decodeArgs(call.Arguments)
		if err != nil {
			// 参数不是合法 JSON：按校验失败带内回传，循环继续，模型可在下一轮修正
			o.logger.Warn("工具参数解析失败", "round", round, "tool", call.Name, "error", err)
			messages = append(messages, llm.ToolMessage(call.ID,
				fmt.Sprintf("Tool '%s' arguments are not valid JSON: %v", call.Name, err)))
			continue
		}

		tctx, span := tracing.StartToolSpan(ctx, call.Name, call.ID)
		res, err := o.registry.Execute(tctx, call.ID, call.Name, args)
		span.End()
		if err != nil {
			// 执行故障：错误带内回传模型，本轮终止，由收尾调用基于已得信息作答
			faulted = true
			o.logger.Error("工具执行故障", "round", round, "tool", call.Name, "error", err)
			messages = append(messages, llm.ToolMessage(call.ID, "Tool execution failed: "+err.Error()))
			continue
		}
		if res.Failed() {
			o.logger.Warn("工具返回错误结果", "round", round, "tool", call.Name, "error", res.Err)
		} else {
			o.logger.Info("工具执行完成", "round", round, "tool", call.Name)
		}
		messages = append(messages, llm.ToolMessage(call.ID, res.Payload()))
	}
	return messages, faulted
}

// finalAnswer 收尾调用：追加收尾指令后再调一次模型，本次不提供任何工具定义
func (o *Orchestrator) finalAnswer(ctx context.Context, start time.Time, query string, messages []llm.Message, rounds, modelCalls int, termination string) (*Answer, error) {
	instruction := o.closing
	if instruction == "" {
		instruction = closingInstruction(query)
	}
	messages = append(messages, llm.SystemMessage(instruction))

	resp, err := o.chat(ctx, messages, nil)
	modelCalls++
	if err != nil {
		return nil, o.failed(start, err)
	}
	text := resp.Content
	if strings.TrimSpace(text) == "" {
		// 个别模型在合成阶段返回空内容，给出明确说明而非空串
		text = "I apologize, but I couldn't generate a proper response to your question."
	}
	o.logger.Info("收尾调用完成", "termination", termination, "rounds", rounds, "model_calls", modelCalls)
	return o.done(start, text, rounds, modelCalls, termination), nil
}

// chat 执行一次模型调用，tools 为 nil 时本次调用禁用工具
func (o *Orchestrator) chat(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Message, error) {
	mctx, span := tracing.StartModelSpan(ctx, o.client.Provider(), len(tools) > 0)
	defer span.End()
	return o.client.Chat(mctx, messages, llm.GenerateOptions{
		Temperature: &o.temperature,
		MaxTokens:   o.maxTokens,
		Tools:       tools,
	})
}

// toolDefinitions 将注册表内的工具转为模型可见的声明
func (o *Orchestrator) toolDefinitions() []llm.ToolDefinition {
	tools := o.registry.List()
	defs := make([]llm.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

func (o *Orchestrator) done(start time.Time, text string, rounds, modelCalls int, termination string) *Answer {
	duration := time.Since(start)
	metrics.QueryDuration.WithLabelValues(termination).Observe(duration.Seconds())
	metrics.QueryTotal.WithLabelValues(termination).Inc()
	metrics.QueryRounds.Observe(float64(rounds))
	return &Answer{
		Text:        text,
		Sources:     o.recorder.Snapshot(),
		Rounds:      rounds,
		ModelCalls:  modelCalls,
		Termination: termination,
		Duration:    duration,
	}
}

func (o *Orchestrator) failed(start time.Time, err error) error {
	metrics.QueryDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	metrics.QueryTotal.WithLabelValues("failed").Inc()
	o.logger.Error("模型调用失败", "error", err)
	return fmt.Errorf("%w: %v", pkgerrors.ErrGeneration, err)
}

// decodeArgs 解析模型给出的 JSON 参数串，空串视为无参数
func decodeArgs(raw string) (map[string]any, error) {
	args := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}
