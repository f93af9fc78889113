package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"course-rag/internal/search"
	"course-rag/internal/storage/metadata"
	"course-rag/internal/tool"
	pkgerrors "course-rag/pkg/errors"
)

// CourseOutlineTool 课程大纲工具：返回标题、链接、讲师与完整课次列表
type CourseOutlineTool struct {
	service  *search.Service
	recorder *tool.SourceRecorder
}

// NewCourseOutlineTool 创建课程大纲工具
func NewCourseOutlineTool(service *search.Service, recorder *tool.SourceRecorder) *CourseOutlineTool {
	return &CourseOutlineTool{service: service, recorder: recorder}
}

// Name 实现 tool.Tool
func (t *CourseOutlineTool) Name() string { return "get_course_outline" }

// Description 实现 tool.Tool
func (t *CourseOutlineTool) Description() string {
	return "Get course outline including title, course link, and complete lesson list"
}

// Schema 实现 tool.Tool
func (t *CourseOutlineTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"course_name": {
				Type:        "string",
				Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
		},
		Required: []string{"course_name"},
	}
}

// Execute 实现 tool.Tool。先解析课程名再取大纲，两步失败信息不同
func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	courseName, _ := args["course_name"].(string)

	title, err := t.service.ResolveCourseName(ctx, courseName)
	if err != nil {
		return tool.Result{}, err
	}
	if title == "" {
		return tool.Result{Content: fmt.Sprintf(
			"No course found matching '%s'. Please check the course name and try again.", courseName)}, nil
	}

	course, err := t.service.Outline(ctx, title)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return tool.Result{Content: fmt.Sprintf("No course details found for '%s'", title)}, nil
		}
		return tool.Result{}, err
	}

	if t.recorder != nil {
		if course.Link != "" {
			t.recorder.Add(tool.Source{Text: course.Title, Link: course.Link})
		}
		for _, l := range course.Lessons {
			if l.Link != "" {
				t.recorder.Add(tool.Source{
					Text: fmt.Sprintf("%s - Lesson %d", course.Title, l.Number),
					Link: l.Link,
				})
			}
		}
	}
	return tool.Result{Content: formatOutline(course)}, nil
}

func formatOutline(course *metadata.Course) string {
	lines := []string{"Course Title: " + course.Title}
	if course.Link != "" {
		lines = append(lines, "Course Link: "+course.Link)
	}
	if course.Instructor != "" {
		lines = append(lines, "Course Instructor: "+course.Instructor)
	}
	if len(course.Lessons) == 0 {
		lines = append(lines, "\nNo lessons found for this course.")
	} else {
		lines = append(lines, "\nLessons:")
		for _, l := range course.Lessons {
			line := fmt.Sprintf("  Lesson %d: %s", l.Number, l.Title)
			if l.Link != "" {
				line += fmt.Sprintf(" (Link: %s)", l.Link)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
