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

// devops 启动 Eino Dev 调试服务并注册课程文档处理 Graph，供 IDE 插件（Eino Dev）连接后进行可视化调试。
// 使用：go run ./cmd/devops；在 IDE 中配置连接地址 127.0.0.1:52538 后选择编排进行 Test Run。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/cloudwego/eino/compose"

	"course-rag/internal/agent"
	"course-rag/internal/ingest"
)

// DevDocument 调试图输入：一份课程文档原文
type DevDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// DevChunks 调试图输出：解析与分块结果
type DevChunks struct {
	CourseTitle string   `json:"course_title"`
	Lessons     int      `json:"lessons"`
	Chunks      []string `json:"chunks"`
}

// DevQuery 提问预览图输入
type DevQuery struct {
	Query string `json:"query"`
}

// DevPrompt 提问预览图输出：问答编排首轮发给模型的消息
type DevPrompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// registerIngestGraph 注册解析+分块图，复用入库管线的真实组件，便于用样例文档观察切片效果
func registerIngestGraph(ctx context.Context) error {
	parser := ingest.NewParser()
	splitter := ingest.NewSplitter(800, 100)

	g := compose.NewGraph[*DevDocument, *DevChunks]()

	g.AddLambdaNode("parse", compose.InvokableLambda(func(ctx context.Context, input *DevDocument) (*ingest.CourseDocument, error) {
		if input == nil || input.Text == "" {
			return nil, fmt.Errorf("文档内容不能为空")
		}
		name := input.Name
		if name == "" {
			name = "debug.txt"
		}
		return parser.Parse(&ingest.Document{Name: name, Content: input.Text})
	}))

	g.AddLambdaNode("split", compose.InvokableLambda(func(ctx context.Context, course *ingest.CourseDocument) (*DevChunks, error) {
		if course == nil {
			return &DevChunks{}, nil
		}
		out := &DevChunks{CourseTitle: course.Title, Lessons: len(course.Lessons)}
		if course.Intro != "" {
			out.Chunks = append(out.Chunks, splitter.Split(course.Intro)...)
		}
		for _, lesson := range course.Lessons {
			out.Chunks = append(out.Chunks, splitter.Split(lesson.Content)...)
		}
		return out, nil
	}))

	g.AddEdge(compose.START, "parse")
	g.AddEdge("parse", "split")
	g.AddEdge("split", compose.END)

	_, err := g.Compile(ctx)
	if err != nil {
		return fmt.Errorf("compile ingest graph: %w", err)
	}
	return nil
}

// registerPromptGraph 注册提问预览图，展示首轮模型调用的 system/user 消息
func registerPromptGraph(ctx context.Context) error {
	g := compose.NewGraph[*DevQuery, *DevPrompt]()

	g.AddLambdaNode("prompt", compose.InvokableLambda(func(ctx context.Context, input *DevQuery) (*DevPrompt, error) {
		if input == nil || input.Query == "" {
			return nil, fmt.Errorf("查询不能为空")
		}
		return &DevPrompt{System: agent.SystemPrompt, User: input.Query}, nil
	}))

	g.AddEdge(compose.START, "prompt")
	g.AddEdge("prompt", compose.END)

	_, err := g.Compile(ctx)
	if err != nil {
		return fmt.Errorf("compile prompt graph: %w", err)
	}
	return nil
}

func main() {
	ctx := context.Background()

	// 1. 先初始化 Eino Dev 调试服务（必须在任何 Compile 之前调用）
	if err := devops.Init(ctx); err != nil {
		log.Fatalf("[eino dev] init failed: %v", err)
	}

	// 2. 注册并编译调试图，插件会通过已编译的 artifact 列表展示
	if err := registerIngestGraph(ctx); err != nil {
		log.Fatalf("[eino dev] register ingest graph: %v", err)
	}
	if err := registerPromptGraph(ctx); err != nil {
		log.Fatalf("[eino dev] register prompt graph: %v", err)
	}

	log.Println("[eino dev] server listening on 127.0.0.1:52538; open Eino Dev in IDE and configure this address to debug")
	log.Println("[eino dev] press Ctrl+C to exit")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Println("[eino dev] shutting down")
}
