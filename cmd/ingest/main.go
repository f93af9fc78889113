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

// ingest 课程文档入库命令行。从项目根启动，配置来自 configs/ingest.yaml（合并 configs/model.yaml）。
package main

import (
	"context"
	"fmt"
	"os"

	"course-rag/internal/app"
	"course-rag/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "ingest":
		runIngest(args)
	case "stats":
		runStats()
	case "clear":
		runClear()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ingest <command> [args]")
	fmt.Println("  ingest [dir] - 入库目录下全部课程文档（缺省用配置 docs_dir，再缺省 ./docs）")
	fmt.Println("  stats        - 显示已入库课程统计")
	fmt.Println("  clear        - 清空课程目录与向量索引")
}

// newBootstrap 加载配置并初始化依赖，失败直接退出
func newBootstrap(ctx context.Context) (*app.Bootstrap, *config.Config) {
	cfg, err := config.LoadIngestConfigWithModel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	bootstrap, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}
	return bootstrap, cfg
}

func runIngest(args []string) {
	ctx := context.Background()
	bootstrap, cfg := newBootstrap(ctx)

	dir := cfg.Storage.Ingest.DocsDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = "./docs"
	}

	pipeline, err := app.NewIngestPipeline(ctx, bootstrap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化入库管线失败: %v\n", err)
		os.Exit(1)
	}
	summary, err := pipeline.IngestDir(ctx, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "入库失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("入库completed: courses=%d chunks=%d skipped=%d failed=%d\n",
		summary.Courses, summary.Chunks, summary.Skipped, summary.Failed)
	_ = bootstrap.Close()
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func runStats() {
	ctx := context.Background()
	bootstrap, _ := newBootstrap(ctx)

	courses, err := bootstrap.MetadataStore.List(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "列出课程失败: %v\n", err)
		os.Exit(1)
	}
	totalChunks := 0
	for _, course := range courses {
		totalChunks += course.ChunkCount
	}
	fmt.Printf("courses=%d chunks=%d\n", len(courses), totalChunks)
	for _, course := range courses {
		fmt.Printf("  - %s (lessons=%d chunks=%d)\n", course.Title, len(course.Lessons), course.ChunkCount)
	}
	_ = bootstrap.Close()
}

func runClear() {
	ctx := context.Background()
	bootstrap, _ := newBootstrap(ctx)

	pipeline, err := app.NewIngestPipeline(ctx, bootstrap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化入库管线失败: %v\n", err)
		os.Exit(1)
	}
	if err := pipeline.Clear(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "清空失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("已清空课程目录与向量索引")
	_ = bootstrap.Close()
}
