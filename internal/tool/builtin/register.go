package builtin

import (
	"course-rag/internal/search"
	"course-rag/internal/tool"
	"course-rag/internal/tool/registry"
)

// RegisterBuiltin 将课程问答内置工具注册到 ToolRegistry
func RegisterBuiltin(reg *registry.Registry, service *search.Service, recorder *tool.SourceRecorder) {
	if reg == nil || service == nil {
		return
	}
	reg.Register(NewCourseSearchTool(service, recorder))
	reg.Register(NewCourseOutlineTool(service, recorder))
}
