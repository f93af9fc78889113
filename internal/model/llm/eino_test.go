package llm

import (
	"testing"

	"github.com/cloudwego/eino/schema"

	"course-rag/internal/tool"
)

func TestToEinoMessages_Roles(t *testing.T) {
	msgs := []Message{
		SystemMessage("you are a course assistant"),
		UserMessage("what is lesson 3 about?"),
		AssistantMessage("", []ToolCall{{ID: "call-1", Name: "search_course_content", Arguments: `{"query":"lesson 3"}`}}),
		ToolMessage("call-1", "[MCP - Lesson 3]\nchunk text"),
	}

	out := toEinoMessages(msgs)
	if len(out) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out))
	}
	if out[0].Role != schema.System || out[1].Role != schema.User {
		t.Errorf("roles: %s, %s", out[0].Role, out[1].Role)
	}
	if out[2].Role != schema.Assistant || len(out[2].ToolCalls) != 1 {
		t.Fatalf("assistant message: role=%s toolcalls=%d", out[2].Role, len(out[2].ToolCalls))
	}
	tc := out[2].ToolCalls[0]
	if tc.ID != "call-1" || tc.Type != "function" || tc.Function.Name != "search_course_content" {
		t.Errorf("tool call: %+v", tc)
	}
	if out[3].Role != schema.Tool || out[3].ToolCallID != "call-1" {
		t.Errorf("tool message: role=%s id=%s", out[3].Role, out[3].ToolCallID)
	}
}

func TestFromEinoMessage(t *testing.T) {
	in := &schema.Message{
		Role:    schema.Assistant,
		Content: "",
		ToolCalls: []schema.ToolCall{
			{ID: "c1", Function: schema.FunctionCall{Name: "get_course_outline", Arguments: `{"course_name":"MCP"}`}},
		},
	}
	out := fromEinoMessage(in)
	if out.Role != RoleAssistant {
		t.Errorf("role: %s", out.Role)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "get_course_outline" {
		t.Fatalf("tool calls: %+v", out.ToolCalls)
	}
	if out.ToolCalls[0].Arguments != `{"course_name":"MCP"}` {
		t.Errorf("arguments: %s", out.ToolCalls[0].Arguments)
	}
}

func TestToToolInfo(t *testing.T) {
	def := ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"query":         {Type: "string", Description: "what to search for"},
				"lesson_number": {Type: "integer", Description: "lesson number"},
			},
			Required: []string{"query"},
		},
	}
	info := toToolInfo(def)
	if info.Name != "search_course_content" || info.Desc != "Search course materials" {
		t.Errorf("info: name=%s desc=%s", info.Name, info.Desc)
	}
	if info.ParamsOneOf == nil {
		t.Error("ParamsOneOf should be set")
	}
}

func TestToDataType(t *testing.T) {
	cases := map[string]schema.DataType{
		"string":  schema.String,
		"integer": schema.Integer,
		"number":  schema.Number,
		"boolean": schema.Boolean,
		"array":   schema.Array,
		"object":  schema.Object,
		"":        schema.String,
	}
	for in, want := range cases {
		if got := toDataType(in); got != want {
			t.Errorf("toDataType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestToolsFingerprint(t *testing.T) {
	defs := []ToolDefinition{{Name: "a"}, {Name: "b"}}
	if got := toolsFingerprint(defs); got != "a,b" {
		t.Errorf("fingerprint: %q", got)
	}
}
