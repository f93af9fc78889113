package tool

import (
	"testing"
)

func TestSourceRecorder_AddDedup(t *testing.T) {
	r := NewSourceRecorder()
	r.Add(Source{Text: "Course A - Lesson 1", Link: "https://a/1"})
	r.Add(Source{Text: "Course A - Lesson 1", Link: "https://a/1"})
	r.Add(Source{Text: "Course A - Lesson 2"})
	got := r.Snapshot()
	if len(got) != 2 {
		t.Fatalf("Snapshot: expected 2 sources, got %d: %v", len(got), got)
	}
	if got[0].Text != "Course A - Lesson 1" || got[1].Text != "Course A - Lesson 2" {
		t.Errorf("Snapshot order: %v", got)
	}
}

func TestSourceRecorder_Reset(t *testing.T) {
	r := NewSourceRecorder()
	r.Add(Source{Text: "Course A - Lesson 1"})
	r.Reset()
	if got := r.Snapshot(); got != nil {
		t.Errorf("Snapshot after Reset: %v", got)
	}
	// Reset 后同一来源可再次记录
	r.Add(Source{Text: "Course A - Lesson 1"})
	if got := r.Snapshot(); len(got) != 1 {
		t.Errorf("Snapshot after re-add: %v", got)
	}
}

func TestSourceRecorder_SkipEmptyText(t *testing.T) {
	r := NewSourceRecorder()
	r.Add(Source{Text: "", Link: "https://x"})
	if got := r.Snapshot(); got != nil {
		t.Errorf("empty text should be ignored, got %v", got)
	}
}

func TestResult_FailedPayload(t *testing.T) {
	ok := Result{CallID: "c1", Content: "body"}
	if ok.Failed() || ok.Payload() != "body" {
		t.Errorf("ok result: failed=%v payload=%q", ok.Failed(), ok.Payload())
	}
	bad := Result{CallID: "c2", Content: "ignored", Err: "missing parameter"}
	if !bad.Failed() || bad.Payload() != "missing parameter" {
		t.Errorf("error result: failed=%v payload=%q", bad.Failed(), bad.Payload())
	}
}
