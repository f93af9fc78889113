package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"course-rag/internal/search"
	"course-rag/internal/tool"
	pkgerrors "course-rag/pkg/errors"
)

// CourseSearchTool 课程正文检索工具：课程名语义匹配 + 课次过滤
type CourseSearchTool struct {
	service  *search.Service
	recorder *tool.SourceRecorder
}

// NewCourseSearchTool 创建课程正文检索工具
func NewCourseSearchTool(service *search.Service, recorder *tool.SourceRecorder) *CourseSearchTool {
	return &CourseSearchTool{service: service, recorder: recorder}
}

// Name 实现 tool.Tool
func (t *CourseSearchTool) Name() string { return "search_course_content" }

// Description 实现 tool.Tool
func (t *CourseSearchTool) Description() string {
	return "Search course materials with smart course name matching and lesson filtering"
}

// Schema 实现 tool.Tool
func (t *CourseSearchTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"query": {
				Type:        "string",
				Description: "What to search for in the course content",
			},
			"course_name": {
				Type:        "string",
				Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": {
				Type:        "integer",
				Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
		Required: []string{"query"},
	}
}

// Execute 实现 tool.Tool。课程解析不到与检索为空都是回传给模型的正常结果，
// 只有基础设施错误才作为 error 返回。
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	query, _ := args["query"].(string)
	courseName, _ := args["course_name"].(string)
	lesson := intArg(args, "lesson_number")

	res, err := t.service.Search(ctx, &search.Request{
		Query:        query,
		CourseName:   courseName,
		LessonNumber: lesson,
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return tool.Result{Content: fmt.Sprintf("No course found matching '%s'", courseName)}, nil
		}
		if errors.Is(err, pkgerrors.ErrInvalidArg) {
			return tool.Result{Err: err.Error()}, nil
		}
		return tool.Result{}, err
	}
	if len(res.Chunks) == 0 {
		return tool.Result{Content: emptyMessage(courseName, lesson)}, nil
	}
	return tool.Result{Content: t.formatResults(res)}, nil
}

// formatResults 每个分块带课程/课次上下文头，块间空行分隔；
// 同时按课程+课次去重记录来源
func (t *CourseSearchTool) formatResults(res *search.Results) string {
	blocks := make([]string, 0, len(res.Chunks))
	for _, c := range res.Chunks {
		label := c.CourseTitle
		if c.LessonNumber != nil {
			label += fmt.Sprintf(" - Lesson %d", *c.LessonNumber)
		}
		blocks = append(blocks, "["+label+"]\n"+c.Content)

		if t.recorder != nil {
			t.recorder.Add(tool.Source{Text: label, Link: c.LessonLink})
		}
	}
	return strings.Join(blocks, "\n\n")
}

func emptyMessage(courseName string, lesson *int) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&b, " in course '%s'", courseName)
	}
	if lesson != nil {
		fmt.Fprintf(&b, " in lesson %d", *lesson)
	}
	b.WriteString(".")
	return b.String()
}

// intArg 提取可选整数参数；JSON 解码后可能是 float64
func intArg(args map[string]any, key string) *int {
	v, ok := args[key]
	if !ok {
		return nil
	}
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		n = int(t)
	default:
		return nil
	}
	return &n
}
