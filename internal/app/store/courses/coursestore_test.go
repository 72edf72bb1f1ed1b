package coursestore_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dalemusser/learnhub/internal/app/store"
	coursestore "github.com/dalemusser/learnhub/internal/app/store/courses"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/dalemusser/learnhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := coursestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	instructor := primitive.NewObjectID()
	created, err := s.Create(ctx, models.Course{
		Title:        "T",
		Description:  "D",
		Category:     "Cat",
		InstructorID: instructor,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID || created.TitleCI == "" {
		t.Errorf("created = %+v", created)
	}

	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "T" || got.Description != "D" || got.Category != "Cat" {
		t.Errorf("fields changed on roundtrip: %+v", got)
	}
	if got.InstructorID != instructor {
		t.Error("instructor not stored")
	}
	if got.StudentIDs == nil || got.VideoURLs == nil {
		t.Error("roster and media should be empty arrays, not null")
	}
}

func TestStore_Update_SelectiveSetAndAppend(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := coursestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := s.Create(ctx, models.Course{
		Title: "Go", Description: "Basics", Category: "Programming",
		VideoURLs: []string{"a.mp4"}, InstructorID: primitive.NewObjectID(),
	})

	updated, err := s.Update(ctx, c.ID, models.CoursePatch{
		Title:        "Go 2",
		ThumbnailURL: "thumb.png",
		VideoURLs:    []string{"b.mp4"},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "Go 2" || updated.Description != "Basics" || updated.Category != "Programming" {
		t.Errorf("selective set wrong: %+v", updated)
	}
	if updated.ThumbnailURL != "thumb.png" {
		t.Errorf("thumbnail = %q, want thumb.png", updated.ThumbnailURL)
	}
	if len(updated.VideoURLs) != 2 || updated.VideoURLs[1] != "b.mp4" {
		t.Errorf("video urls = %v", updated.VideoURLs)
	}

	if _, err := s.Update(ctx, primitive.NewObjectID(), models.CoursePatch{Title: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AddStudent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := coursestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := s.Create(ctx, models.Course{Title: "Go", Description: "D", InstructorID: primitive.NewObjectID()})
	student := primitive.NewObjectID()

	got, err := s.AddStudent(ctx, c.ID, student)
	if err != nil {
		t.Fatalf("AddStudent: %v", err)
	}
	if !got.HasStudent(student) {
		t.Error("returned course should include the student")
	}

	if _, err := s.AddStudent(ctx, c.ID, student); !errors.Is(err, store.ErrAlreadyEnrolled) {
		t.Errorf("second AddStudent err = %v, want ErrAlreadyEnrolled", err)
	}
	if _, err := s.AddStudent(ctx, primitive.NewObjectID(), student); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing course err = %v, want ErrNotFound", err)
	}

	got, _ = s.GetByID(ctx, c.ID)
	if len(got.StudentIDs) != 1 {
		t.Errorf("roster = %v, want exactly one entry", got.StudentIDs)
	}
}

func TestStore_AddStudent_ConcurrentNoDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := coursestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := s.Create(ctx, models.Course{Title: "Go", Description: "D", InstructorID: primitive.NewObjectID()})
	student := primitive.NewObjectID()

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddStudent(ctx, c.ID, student); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	got, _ := s.GetByID(ctx, c.ID)
	if len(got.StudentIDs) != 1 {
		t.Errorf("roster = %v, want exactly one entry", got.StudentIDs)
	}
}

func TestStore_ListByInstructorAndStudent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := coursestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner, other := primitive.NewObjectID(), primitive.NewObjectID()
	c1, _ := s.Create(ctx, models.Course{Title: "A", Description: "D", InstructorID: owner})
	_, _ = s.Create(ctx, models.Course{Title: "B", Description: "D", InstructorID: owner})
	_, _ = s.Create(ctx, models.Course{Title: "C", Description: "D", InstructorID: other})

	mine, err := s.ListByInstructor(ctx, owner)
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListByInstructor = %d, %v", len(mine), err)
	}

	student := primitive.NewObjectID()
	_, _ = s.AddStudent(ctx, c1.ID, student)
	enrolled, err := s.ListByStudent(ctx, student)
	if err != nil || len(enrolled) != 1 || enrolled[0].ID != c1.ID {
		t.Errorf("ListByStudent = %+v, %v", enrolled, err)
	}

	all, _ := s.List(ctx)
	if len(all) != 3 {
		t.Errorf("List = %d, want 3", len(all))
	}
}

func TestStore_Search(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := coursestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	inst := primitive.NewObjectID()
	for i := 0; i < 12; i++ {
		_, _ = s.Create(ctx, models.Course{Title: fmt.Sprintf("Golang %d", i), Description: "D", InstructorID: inst})
	}
	_, _ = s.Create(ctx, models.Course{Title: "Cooking", Description: "Learn to GO shopping", InstructorID: inst})
	_, _ = s.Create(ctx, models.Course{Title: "Math", Description: "Algebra", Category: "c++", InstructorID: inst})

	empty, err := s.Search(ctx, "   ", 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("blank search = %d results, err %v", len(empty), err)
	}

	res, err := s.Search(ctx, "go", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 10 {
		t.Errorf("len = %d, want capped at 10", len(res))
	}

	literal, _ := s.Search(ctx, "C++", 10)
	if len(literal) != 1 || literal[0].Title != "Math" {
		t.Errorf("regex metacharacters not matched literally: %+v", literal)
	}
}
