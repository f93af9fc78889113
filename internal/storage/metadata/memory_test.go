package metadata

import (
	"context"
	"errors"
	"testing"

	pkgerrors "course-rag/pkg/errors"
)

func sampleCourse() *Course {
	return &Course{
		Title:      "Introduction to RAG",
		Link:       "https://example.com/rag",
		Instructor: "Ada",
		Lessons: []Lesson{
			{Number: 0, Title: "Welcome", Link: "https://example.com/rag/0"},
			{Number: 1, Title: "Chunking", Link: "https://example.com/rag/1"},
		},
		ChunkCount: 12,
	}
}

func TestMemoryStore_UpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	course := sampleCourse()
	if err := store.Upsert(ctx, course); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if course.ID == "" {
		t.Fatal("expected generated course ID")
	}
	if course.CreatedAt == 0 || course.UpdatedAt == 0 {
		t.Fatal("expected timestamps to be set")
	}

	got, err := store.Get(ctx, course.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Introduction to RAG" {
		t.Errorf("unexpected title %q", got.Title)
	}
	if len(got.Lessons) != 2 {
		t.Errorf("expected 2 lessons, got %d", len(got.Lessons))
	}
}

func TestMemoryStore_UpsertKeepsIdentity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := sampleCourse()
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	second := sampleCourse()
	second.ChunkCount = 30
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected same ID on title conflict, got %s vs %s", second.ID, first.ID)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("expected CreatedAt preserved, got %d vs %d", second.CreatedAt, first.CreatedAt)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 course after re-upsert, got %d", count)
	}

	got, _ := store.Get(ctx, first.ID)
	if got.ChunkCount != 30 {
		t.Errorf("expected chunk count updated to 30, got %d", got.ChunkCount)
	}
}

func TestMemoryStore_GetByTitle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, sampleCourse()); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByTitle(ctx, "Introduction to RAG")
	if err != nil {
		t.Fatalf("GetByTitle failed: %v", err)
	}
	if got.Instructor != "Ada" {
		t.Errorf("unexpected instructor %q", got.Instructor)
	}

	_, err = store.GetByTitle(ctx, "Nonexistent Course")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, title := range []string{"Charlie", "Alpha", "Bravo"} {
		if err := store.Upsert(ctx, &Course{Title: title}); err != nil {
			t.Fatalf("Upsert %s failed: %v", title, err)
		}
	}

	all, err := store.List(ctx, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 courses, got %d", len(all))
	}
	if all[0].Title != "Alpha" || all[2].Title != "Charlie" {
		t.Errorf("expected titles sorted, got %s .. %s", all[0].Title, all[2].Title)
	}

	page, err := store.List(ctx, &Pagination{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("paginated List failed: %v", err)
	}
	if len(page) != 1 || page[0].Title != "Bravo" {
		t.Errorf("expected single page [Bravo], got %v", page)
	}
}

func TestMemoryStore_Titles(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, title := range []string{"MCP Basics", "Advanced Retrieval"} {
		if err := store.Upsert(ctx, &Course{Title: title}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	titles, err := store.Titles(ctx)
	if err != nil {
		t.Fatalf("Titles failed: %v", err)
	}
	if len(titles) != 2 || titles[0] != "Advanced Retrieval" {
		t.Errorf("unexpected titles %v", titles)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	course := sampleCourse()
	if err := store.Upsert(ctx, course); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, course.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, course.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := store.GetByTitle(ctx, course.Title); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("expected title mapping removed, got %v", err)
	}

	if err := store.Delete(ctx, "course-missing"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown ID, got %v", err)
	}
}

func TestCourse_FindLesson(t *testing.T) {
	course := sampleCourse()

	lesson := course.FindLesson(1)
	if lesson == nil || lesson.Title != "Chunking" {
		t.Errorf("expected lesson 1 Chunking, got %+v", lesson)
	}
	if course.FindLesson(99) != nil {
		t.Error("expected nil for unknown lesson number")
	}
}
