package courses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/learnhub/internal/app/store/memstore"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/media"
	"github.com/dalemusser/learnhub/internal/app/system/metrics"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc     *Service
	courses *memstore.Courses
	users   *memstore.Users
	media   *media.Memory

	owner   models.User
	other   models.User
	admin   models.User
	student models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		courses: memstore.NewCourses(),
		users:   memstore.NewUsers(),
		media:   &media.Memory{},
	}
	f.svc = &Service{Courses: f.courses, Users: f.users, Media: f.media, Metrics: metrics.New(), Log: zap.NewNop()}
	f.owner = f.users.Put(models.User{Name: "Owner", Email: "owner@example.com", Role: models.RoleInstructor})
	f.other = f.users.Put(models.User{Name: "Other", Email: "other@example.com", Role: models.RoleInstructor})
	f.admin = f.users.Put(models.User{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin})
	f.student = f.users.Put(models.User{Name: "Stu", Email: "stu@example.com", Role: models.RoleStudent})
	return f
}

func actorOf(u models.User) models.Actor { return models.Actor{ID: u.ID, Role: u.Role} }

func (f *fixture) seedCourse(title string) models.Course {
	return f.courses.Put(models.Course{
		Title:        title,
		Description:  title + " description",
		Category:     "Programming",
		InstructorID: f.owner.ID,
	})
}

// fileHeader builds a real multipart.FileHeader for upload tests.
func fileHeader(t *testing.T, field, name, contentType string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name)}
	h["Content-Type"] = []string{contentType}
	w, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("data"))
	mw.Close()

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File[field][0]
}

func TestUpdate_Ownership(t *testing.T) {
	tests := []struct {
		name     string
		actor    func(f *fixture) models.Actor
		wantKind apperr.Kind
		wantOK   bool
	}{
		{"owner", func(f *fixture) models.Actor { return actorOf(f.owner) }, 0, true},
		{"admin bypasses ownership", func(f *fixture) models.Actor { return actorOf(f.admin) }, 0, true},
		{"other instructor", func(f *fixture) models.Actor { return actorOf(f.other) }, apperr.KindForbidden, false},
		{"zero actor", func(f *fixture) models.Actor { return models.Actor{Role: models.RoleInstructor} }, apperr.KindForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.seedCourse("Go")

			view, err := f.svc.Update(context.Background(), tt.actor(f), c.ID, Input{Title: "X"})
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Update: %v", err)
				}
				if view.Title != "X" {
					t.Errorf("title = %q, want X", view.Title)
				}
				return
			}
			if apperr.KindOf(err) != tt.wantKind {
				t.Fatalf("err = %v, want %v", err, tt.wantKind)
			}
			if f.courses.Writes != 0 {
				t.Errorf("writes = %d, want 0", f.courses.Writes)
			}
			stored, _ := f.courses.GetByID(context.Background(), c.ID)
			if stored.Title != "Go" {
				t.Errorf("title changed to %q", stored.Title)
			}
		})
	}
}

func TestUpdate_MissingCourse(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), actorOf(f.admin), primitive.NewObjectID(), Input{Title: "X"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestUpdate_ForbiddenDoesNotUpload(t *testing.T) {
	f := newFixture(t)
	c := f.seedCourse("Go")

	_, err := f.svc.Update(context.Background(), actorOf(f.other), c.ID, Input{
		Thumbnail: fileHeader(t, "thumbnail", "t.png", "image/png"),
	})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want Forbidden", err)
	}
	if f.media.Count() != 0 {
		t.Errorf("uploads = %d, want 0", f.media.Count())
	}
}

func TestUpdate_AssignsThumbnailAndAppendsMedia(t *testing.T) {
	f := newFixture(t)
	c := f.courses.Put(models.Course{
		Title: "Go", Description: "d", InstructorID: f.owner.ID,
		VideoURLs: []string{"https://media.test/existing.mp4"},
	})

	view, err := f.svc.Update(context.Background(), actorOf(f.owner), c.ID, Input{
		Thumbnail:  fileHeader(t, "thumbnail", "t.png", "image/png"),
		MediaFiles: []*multipart.FileHeader{fileHeader(t, "mediaFiles", "a.mp4", "video/mp4")},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.Contains(view.ThumbnailURL, media.FolderThumbnails) {
		t.Errorf("thumbnail not assigned: %q", view.ThumbnailURL)
	}
	if len(view.VideoURLs) != 2 || view.VideoURLs[0] != "https://media.test/existing.mp4" {
		t.Errorf("videoUrls = %v, want existing plus one appended", view.VideoURLs)
	}
}

func TestUpdate_EmptyPatchReturnsCurrent(t *testing.T) {
	f := newFixture(t)
	c := f.seedCourse("Go")

	view, err := f.svc.Update(context.Background(), actorOf(f.owner), c.ID, Input{Title: "   "})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if view.Title != "Go" || f.courses.Writes != 0 {
		t.Errorf("title = %q writes = %d", view.Title, f.courses.Writes)
	}
}

func TestUpdate_UploadFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	c := f.seedCourse("Go")
	f.media.Err = errors.New("bucket unavailable")

	_, err := f.svc.Update(context.Background(), actorOf(f.owner), c.ID, Input{
		Title:     "New",
		Thumbnail: fileHeader(t, "thumbnail", "t.png", "image/png"),
	})
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("err = %v, want UpstreamFailure", err)
	}
	if f.courses.Writes != 0 {
		t.Errorf("writes = %d, want 0", f.courses.Writes)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	c := f.seedCourse("Go")

	if _, err := f.svc.Delete(context.Background(), actorOf(f.other), c.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner delete err = %v, want Forbidden", err)
	}
	if _, err := f.svc.Delete(context.Background(), actorOf(f.owner), c.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v, want NotFound", err)
	}
	if _, err := f.svc.Delete(context.Background(), actorOf(f.owner), c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want NotFound", err)
	}
}

func TestEnroll_TwiceIsAlreadyEnrolled(t *testing.T) {
	f := newFixture(t)
	c := f.seedCourse("Go")
	ctx := context.Background()

	view, err := f.svc.Enroll(ctx, actorOf(f.student), c.ID)
	if err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if len(view.Students) != 1 || view.Students[0].ID != f.student.ID || view.Students[0].Name != "Stu" {
		t.Errorf("roster = %+v", view.Students)
	}

	_, err = f.svc.Enroll(ctx, actorOf(f.student), c.ID)
	if !errors.Is(err, apperr.ErrAlreadyEnrolled) {
		t.Fatalf("second enroll err = %v, want AlreadyEnrolled", err)
	}
	if f.courses.Writes != 1 {
		t.Errorf("writes = %d, want 1", f.courses.Writes)
	}

	stored, _ := f.courses.GetByID(ctx, c.ID)
	n := 0
	for _, id := range stored.StudentIDs {
		if id == f.student.ID {
			n++
		}
	}
	if n != 1 {
		t.Errorf("student appears %d times, want 1", n)
	}
}

func TestEnroll_MissingCourse(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Enroll(context.Background(), actorOf(f.student), primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	if f.courses.Writes != 0 {
		t.Errorf("writes = %d, want 0", f.courses.Writes)
	}
}

func TestEnroll_NonStudentForbidden(t *testing.T) {
	f := newFixture(t)
	c := f.seedCourse("Go")
	for _, u := range []models.User{f.owner, f.admin} {
		if _, err := f.svc.Enroll(context.Background(), actorOf(u), c.ID); !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("%s enroll err = %v, want Forbidden", u.Role, err)
		}
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, actorOf(f.owner), Input{Title: "T", Description: "D", Category: "Cat"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "T" || got.Description != "D" || got.Category != "Cat" {
		t.Errorf("got %q/%q/%q", got.Title, got.Description, got.Category)
	}
	if got.Instructor.ID != f.owner.ID || got.Instructor.Name != "Owner" {
		t.Errorf("instructor = %+v", got.Instructor)
	}
	if got.Students == nil || len(got.Students) != 0 {
		t.Errorf("students = %v, want empty list", got.Students)
	}
}

func TestCreate_RequiredFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), actorOf(f.owner), Input{Title: "T"})
	e := apperr.As(err)
	if e == nil || e.Kind != apperr.KindValidation {
		t.Fatalf("err = %v, want ValidationFailed", err)
	}
	if len(e.Details) != 1 || e.Details[0].Field != "description" {
		t.Errorf("details = %+v", e.Details)
	}
	if f.courses.Writes != 0 {
		t.Errorf("writes = %d, want 0", f.courses.Writes)
	}
}

func TestCreate_StripsMarkupFromDescription(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Create(context.Background(), actorOf(f.owner), Input{
		Title:       "T",
		Description: `<script>alert(1)</script><b>Learn</b> Go`,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Description != "Learn Go" {
		t.Errorf("description = %q", view.Description)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 15; i++ {
		f.seedCourse(fmt.Sprintf("Golang part %d", i))
	}
	f.courses.Put(models.Course{Title: "Cooking", Description: "pasta", Category: "Food", InstructorID: f.owner.ID})
	ctx := context.Background()

	for _, q := range []string{"", "   "} {
		got, err := f.svc.Search(ctx, q)
		if err != nil || got == nil || len(got) != 0 {
			t.Errorf("Search(%q) = %v, %v; want empty list", q, got, err)
		}
	}

	got, err := f.svc.Search(ctx, "GOLANG")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
	for _, c := range got {
		hay := strings.ToLower(c.Title + c.Description + c.Category)
		if !strings.Contains(hay, "golang") {
			t.Errorf("result %q does not contain query", c.Title)
		}
		if c.Instructor.Name != "Owner" {
			t.Errorf("instructor = %+v", c.Instructor)
		}
	}

	got, _ = f.svc.Search(ctx, "food")
	if len(got) != 1 || got[0].Title != "Cooking" {
		t.Errorf("category search = %+v", got)
	}

	got, _ = f.svc.Search(ctx, "(")
	if len(got) != 0 {
		t.Errorf("regex metacharacter query matched %d", len(got))
	}
}

func TestSearch_LongQueryNeverMatchesPrefix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prefix := strings.Repeat("p", 200)
	f.seedCourse(prefix)

	got, err := f.svc.Search(ctx, prefix)
	if err != nil || len(got) != 1 {
		t.Fatalf("Search(200 chars) = %d, %v; want the course", len(got), err)
	}

	for _, q := range []string{prefix + "ZZZ", "a" + strings.Repeat("é", 200)} {
		got, err := f.svc.Search(ctx, q)
		if len(got) != 0 {
			t.Errorf("Search(len %d) returned %d results", len(q), len(got))
		}
		if err == nil || apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("Search(len %d) err = %v, want validation", len(q), err)
		}
		if e := apperr.As(err); len(e.Details) != 1 || e.Details[0].Field != "query" {
			t.Errorf("details = %+v, want one query entry", e.Details)
		}
	}
}

func TestListByInstructorAndEnrolled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedCourse("A")
	f.seedCourse("B")

	mine, err := f.svc.ListByInstructor(ctx, f.owner.ID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListByInstructor = %d, %v", len(mine), err)
	}
	none, err := f.svc.ListByInstructor(ctx, f.other.ID)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("other instructor = %v, %v; want empty list", none, err)
	}

	if _, err := f.svc.Enroll(ctx, actorOf(f.student), a.ID); err != nil {
		t.Fatal(err)
	}
	enrolled, err := f.svc.ListEnrolled(ctx, actorOf(f.student))
	if err != nil || len(enrolled) != 1 || enrolled[0].ID != a.ID {
		t.Errorf("ListEnrolled = %+v, %v", enrolled, err)
	}
}

func TestStoreFailureIsUpstream(t *testing.T) {
	f := newFixture(t)
	f.courses.Err = errors.New("connection reset")

	if _, err := f.svc.List(context.Background()); apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("List err = %v", err)
	}
	if _, err := f.svc.Enroll(context.Background(), actorOf(f.student), primitive.NewObjectID()); apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("Enroll err = %v", err)
	}
}
