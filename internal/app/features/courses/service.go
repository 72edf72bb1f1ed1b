package courses

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/dalemusser/learnhub/internal/app/policy/coursepolicy"
	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnhub/internal/app/system/inputval"
	"github.com/dalemusser/learnhub/internal/app/system/limits"
	"github.com/dalemusser/learnhub/internal/app/system/media"
	"github.com/dalemusser/learnhub/internal/app/system/metrics"
	"github.com/dalemusser/learnhub/internal/app/system/normalize"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service holds the course rules. Every method returns an *apperr.Error
// (or nil) so handlers can render failures without inspecting causes.
type Service struct {
	Courses store.CourseRepository
	Users   store.IdentityRepository
	Media   media.Uploader
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Input carries the fields and files of a create or update. Text fields
// are untrimmed; the service normalizes them.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`

	Thumbnail  *multipart.FileHeader   `json:"-"`
	MediaFiles []*multipart.FileHeader `json:"-"`
}

func (in Input) clean() Input {
	in.Title = normalize.Name(in.Title)
	in.Description = strings.TrimSpace(htmlsanitize.PlainText(in.Description))
	in.Category = normalize.Name(in.Category)
	return in
}

/*─────────────────────────────────────────────────────────────────────────────*
| Mutations                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Create stores a course owned by actor. Title and description are
// required. Files are uploaded before the insert; an upload failure leaves
// nothing persisted.
func (s *Service) Create(ctx context.Context, actor models.Actor, in Input) (CourseView, error) {
	in = in.clean()
	if err := inputval.Required("title", in.Title, "description", in.Description); err != nil {
		return CourseView{}, err
	}
	if actor.ID.IsZero() {
		return CourseView{}, apperr.Unauthenticated("not authenticated")
	}

	thumb, videos, err := s.upload(ctx, in)
	if err != nil {
		return CourseView{}, err
	}

	c, err := s.Courses.Create(ctx, models.Course{
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		ThumbnailURL: thumb,
		VideoURLs:    videos,
		InstructorID: actor.ID,
	})
	if err != nil {
		return CourseView{}, apperr.Upstream("create course", err)
	}
	return s.populate(ctx, c)
}

// Authorize runs the ownership check alone, so callers can refuse a
// non-owner before reading a request body.
func (s *Service) Authorize(ctx context.Context, actor models.Actor, courseID primitive.ObjectID) error {
	_, err := coursepolicy.RequireOwner(ctx, s.Courses, actor, courseID)
	return err
}

// Update applies the non-empty fields of in to the course. The ownership
// check runs before any upload or write. The uploaded thumbnail replaces
// the current one; media files are appended.
func (s *Service) Update(ctx context.Context, actor models.Actor, courseID primitive.ObjectID, in Input) (CourseView, error) {
	current, err := coursepolicy.RequireOwner(ctx, s.Courses, actor, courseID)
	if err != nil {
		return CourseView{}, err
	}

	in = in.clean()
	thumb, videos, err := s.upload(ctx, in)
	if err != nil {
		return CourseView{}, err
	}

	patch := models.CoursePatch{
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		ThumbnailURL: thumb,
		VideoURLs:    videos,
	}
	if patch.Empty() {
		return s.populate(ctx, current)
	}

	c, err := s.Courses.Update(ctx, courseID, patch)
	if errors.Is(err, store.ErrNotFound) {
		return CourseView{}, apperr.NotFound("Course not found")
	}
	if err != nil {
		return CourseView{}, apperr.Upstream("update course", err)
	}
	return s.populate(ctx, c)
}

// Delete removes the course after the ownership check. It returns the
// deleted course for auditing.
func (s *Service) Delete(ctx context.Context, actor models.Actor, courseID primitive.ObjectID) (models.Course, error) {
	c, err := coursepolicy.RequireOwner(ctx, s.Courses, actor, courseID)
	if err != nil {
		return models.Course{}, err
	}
	err = s.Courses.Delete(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Course{}, apperr.NotFound("Course not found")
	}
	if err != nil {
		return models.Course{}, apperr.Upstream("delete course", err)
	}
	return c, nil
}

// Enroll adds actor to the course roster. Only students may enroll. A
// second call for the same pair fails with AlreadyEnrolled and writes
// nothing; the store's add-if-absent update keeps concurrent calls from
// producing duplicates.
func (s *Service) Enroll(ctx context.Context, actor models.Actor, courseID primitive.ObjectID) (CourseView, error) {
	if actor.Role != models.RoleStudent || actor.ID.IsZero() {
		s.Metrics.Enrollment(metrics.ResultDenied)
		return CourseView{}, apperr.Forbidden("Only students can enroll in courses")
	}

	c, err := s.Courses.AddStudent(ctx, courseID, actor.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.Metrics.Enrollment(metrics.ResultInvalid)
		return CourseView{}, apperr.NotFound("Course not found")
	case errors.Is(err, store.ErrAlreadyEnrolled):
		s.Metrics.Enrollment(metrics.ResultDenied)
		return CourseView{}, apperr.AlreadyEnrolled("You are already enrolled in this course")
	case err != nil:
		s.Metrics.Enrollment(metrics.ResultError)
		return CourseView{}, apperr.Upstream("enroll", err)
	}
	s.Metrics.Enrollment(metrics.ResultOK)
	return s.populate(ctx, c)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reads                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Service) Get(ctx context.Context, courseID primitive.ObjectID) (CourseView, error) {
	c, err := s.Courses.GetByID(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return CourseView{}, apperr.NotFound("Course not found")
	}
	if err != nil {
		return CourseView{}, apperr.Upstream("load course", err)
	}
	return s.populate(ctx, c)
}

func (s *Service) List(ctx context.Context) ([]CourseView, error) {
	cs, err := s.Courses.List(ctx)
	if err != nil {
		return nil, apperr.Upstream("list courses", err)
	}
	return s.populateAll(ctx, cs)
}

// ListByInstructor returns the courses owned by instructorID. An empty
// result is not an error.
func (s *Service) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]CourseView, error) {
	cs, err := s.Courses.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, apperr.Upstream("list instructor courses", err)
	}
	return s.populateAll(ctx, cs)
}

// ListEnrolled returns the courses whose roster contains actor.
func (s *Service) ListEnrolled(ctx context.Context, actor models.Actor) ([]CourseView, error) {
	if actor.ID.IsZero() {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	cs, err := s.Courses.ListByStudent(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Upstream("list enrolled courses", err)
	}
	return s.populateAll(ctx, cs)
}

// Search returns at most limits.SearchPageSize summaries whose title,
// description or category contains q. A blank query matches nothing and an
// over-long one is rejected.
func (s *Service) Search(ctx context.Context, q string) ([]CourseSummary, error) {
	q = normalize.QueryParam(q)
	if q == "" {
		return []CourseSummary{}, nil
	}
	if !normalize.QueryFits(q) {
		return nil, apperr.Validation("invalid search query", apperr.FieldError{
			Field:   "query",
			Message: fmt.Sprintf("must be valid text of at most %d characters", normalize.MaxQueryRunes),
		})
	}
	cs, err := s.Courses.Search(ctx, q, limits.SearchPageSize)
	if err != nil {
		return nil, apperr.Upstream("search courses", err)
	}
	if len(cs) > limits.SearchPageSize {
		cs = cs[:limits.SearchPageSize]
	}

	refs, err := s.refs(ctx, cs, false)
	if err != nil {
		return nil, err
	}
	out := make([]CourseSummary, 0, len(cs))
	for _, c := range cs {
		out = append(out, summarize(c, refs))
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Service) upload(ctx context.Context, in Input) (string, []string, error) {
	if in.Thumbnail == nil && len(in.MediaFiles) == 0 {
		return "", nil, nil
	}
	if s.Media == nil {
		return "", nil, apperr.Upstream("upload media", errors.New("no media backend configured"))
	}

	var thumb string
	if in.Thumbnail != nil {
		u, err := s.Media.Upload(ctx, media.FolderThumbnails, in.Thumbnail)
		if err != nil {
			s.Metrics.Upload(media.FolderThumbnails, metrics.ResultError)
			return "", nil, apperr.Upstream("upload thumbnail", err)
		}
		s.Metrics.Upload(media.FolderThumbnails, metrics.ResultOK)
		thumb = u
	}

	var videos []string
	if len(in.MediaFiles) > 0 {
		urls, err := media.UploadAll(ctx, s.Media, media.FolderCourseMedia, in.MediaFiles)
		if err != nil {
			s.Metrics.Upload(media.FolderCourseMedia, metrics.ResultError)
			return "", nil, apperr.Upstream("upload media files", err)
		}
		for range urls {
			s.Metrics.Upload(media.FolderCourseMedia, metrics.ResultOK)
		}
		videos = urls
	}
	return thumb, videos, nil
}

func (s *Service) populate(ctx context.Context, c models.Course) (CourseView, error) {
	views, err := s.populateAll(ctx, []models.Course{c})
	if err != nil {
		return CourseView{}, err
	}
	return views[0], nil
}

// populateAll resolves instructor and student refs with one batched read.
func (s *Service) populateAll(ctx context.Context, cs []models.Course) ([]CourseView, error) {
	refs, err := s.refs(ctx, cs, true)
	if err != nil {
		return nil, err
	}
	out := make([]CourseView, 0, len(cs))
	for _, c := range cs {
		out = append(out, newView(c, refs))
	}
	return out, nil
}

func (s *Service) refs(ctx context.Context, cs []models.Course, withStudents bool) (map[primitive.ObjectID]models.UserRef, error) {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, c := range cs {
		add(c.InstructorID)
		if withStudents {
			for _, sid := range c.StudentIDs {
				add(sid)
			}
		}
	}

	refs := make(map[primitive.ObjectID]models.UserRef, len(ids))
	if len(ids) == 0 || s.Users == nil {
		return refs, nil
	}
	users, err := s.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("load course members", err)
	}
	for _, u := range users {
		refs[u.ID] = u.Ref()
	}
	return refs, nil
}
