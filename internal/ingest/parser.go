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

package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// CourseDocument 解析后的课程文档
type CourseDocument struct {
	Title      string
	Link       string
	Instructor string
	Intro      string // 首个课次标记前的课程级正文（通常为空）
	Lessons    []LessonContent
}

// LessonContent 单个课次及其正文
type LessonContent struct {
	Number  int
	Title   string
	Link    string
	Content string
}

// lessonMarkerRe 课次标记行，如 "Lesson 3: Building the Server"
var lessonMarkerRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Parser 课程文档解析器。课程文档约定：
//
//	Course Title: <标题>
//	Course Link: <链接>
//	Course Instructor: <讲师>
//
//	Lesson 0: Introduction
//	Lesson Link: <课次链接>
//	<课次正文 …>
//
//	Lesson 1: …
//
// 头部行与 Lesson Link 行均可省略；无课程标题时回退为文件名。
type Parser struct{}

// NewParser 创建解析器
func NewParser() *Parser {
	return &Parser{}
}

// Parse 解析一份课程文档
func (p *Parser) Parse(doc *Document) (*CourseDocument, error) {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		name := ""
		if doc != nil {
			name = doc.Name
		}
		return nil, fmt.Errorf("课程文档 %q 内容为空", name)
	}

	lines := strings.Split(doc.Content, "\n")
	course := &CourseDocument{}

	// 文件头：首个课次标记前的 Course Title/Link/Instructor 行
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if lessonMarkerRe.MatchString(line) {
			break
		}
		if v, ok := headerValue(line, "Course Title:"); ok {
			course.Title = v
			continue
		}
		if v, ok := headerValue(line, "Course Link:"); ok {
			course.Link = v
			continue
		}
		if v, ok := headerValue(line, "Course Instructor:"); ok {
			course.Instructor = v
			continue
		}
		// 非头部行：头部结束，其后属于课程级正文或课次
		break
	}
	if course.Title == "" {
		course.Title = strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name))
	}

	var intro []string
	var current *LessonContent
	var body []string
	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		course.Lessons = append(course.Lessons, *current)
		current = nil
		body = nil
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := lessonMarkerRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("课程 %q 的课次编号无效: %q", course.Title, trimmed)
			}
			current = &LessonContent{Number: number, Title: strings.TrimSpace(m[2])}
			continue
		}

		if current == nil {
			if trimmed != "" {
				intro = append(intro, trimmed)
			}
			continue
		}
		if len(body) == 0 {
			// 课次标记之后、正文开始之前的可选链接行
			if trimmed == "" {
				continue
			}
			if v, ok := headerValue(trimmed, "Lesson Link:"); ok {
				current.Link = v
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	course.Intro = strings.TrimSpace(strings.Join(intro, "\n"))
	if course.Intro == "" && len(course.Lessons) == 0 {
		return nil, fmt.Errorf("课程文档 %q 没有可入库的正文", doc.Name)
	}
	return course, nil
}

// headerValue 匹配 "Key: value" 头部行（键不区分大小写），返回去空白后的值
func headerValue(line, key string) (string, bool) {
	if len(line) < len(key) || !strings.EqualFold(line[:len(key)], key) {
		return "", false
	}
	return strings.TrimSpace(line[len(key):]), true
}
