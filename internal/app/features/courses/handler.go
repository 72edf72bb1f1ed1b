// internal/app/features/courses/handler.go
package courses

import (
	"net/http"

	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/auditlog"
	"github.com/dalemusser/learnhub/internal/app/system/authz"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/app/system/limits"
	"github.com/dalemusser/learnhub/internal/app/system/media"
	"github.com/dalemusser/learnhub/internal/app/system/timeouts"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the /course routes. It is constructed once at startup in
// bootstrap.
type Handler struct {
	Svc   *Service
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(svc *Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Audit: audit, Log: logger}
}

var fileFields = []media.FieldSpec{
	{Name: "thumbnail", MaxFiles: limits.MaxThumbnails},
	{Name: "mediaFiles", MaxFiles: limits.MaxMediaFiles},
}

// courseID parses the {courseId} param. An id that cannot be an ObjectID
// cannot resolve to a course, so it is NotFound.
func courseID(r *http.Request) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "courseId"))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("Course not found")
	}
	return oid, nil
}

// readInput accepts multipart (with files) or a JSON body (fields only).
func readInput(w http.ResponseWriter, r *http.Request) (Input, error) {
	if media.IsMultipart(r) {
		form, err := media.ParseForm(w, r, fileFields...)
		if err != nil {
			return Input{}, err
		}
		return Input{
			Title:       form.Value("title"),
			Description: form.Value("description"),
			Category:    form.Value("category"),
			Thumbnail:   form.First("thumbnail"),
			MediaFiles:  form.Files["mediaFiles"],
		}, nil
	}

	var in Input
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := jsonresp.Decode(r, &in); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	jsonresp.Error(w, r, h.Log, err)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	act, ok := authz.Actor(r)
	if !ok {
		h.fail(w, r, apperr.Unauthenticated("not authenticated"))
	}
	return act, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| Mutations                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	in, err := readInput(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "course create")
	defer cancel()

	view, err := h.Svc.Create(ctx, act, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.Course(ctx, r, audit.EventCourseCreated, act.ID, view.ID, view.Title)
	jsonresp.OK(w, http.StatusCreated, "Course created successfully", view)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := courseID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	authCtx, authCancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "course update authorize")
	err = h.Svc.Authorize(authCtx, act, id)
	authCancel()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in, err := readInput(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "course update")
	defer cancel()

	view, err := h.Svc.Update(ctx, act, id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.Course(ctx, r, audit.EventCourseUpdated, act.ID, view.ID, view.Title)
	jsonresp.OK(w, http.StatusOK, "Course updated successfully", view)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := courseID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "course delete")
	defer cancel()

	c, err := h.Svc.Delete(ctx, act, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.Course(ctx, r, audit.EventCourseDeleted, act.ID, c.ID, c.Title)
	jsonresp.OK(w, http.StatusOK, "Course deleted successfully", nil)
}

func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := courseID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "course enroll")
	defer cancel()

	view, err := h.Svc.Enroll(ctx, act, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.Enrolled(ctx, r, act.ID, view.ID)
	jsonresp.OK(w, http.StatusOK, "Successfully enrolled in the course", view)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reads                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "course list")
	defer cancel()

	views, err := h.Svc.List(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", views)
}

func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	id, err := courseID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "course detail")
	defer cancel()

	view, err := h.Svc.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", view)
}

// ServeByInstructor lists the courses of {instructorId}. A malformed id
// matches no course and yields an empty list.
func (h *Handler) ServeByInstructor(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "instructorId"))
	if err != nil {
		jsonresp.OK(w, http.StatusOK, "", []CourseView{})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "instructor courses")
	defer cancel()

	views, err := h.Svc.ListByInstructor(ctx, oid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", views)
}

func (h *Handler) ServeEnrolled(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "enrolled courses")
	defer cancel()

	views, err := h.Svc.ListEnrolled(ctx, act)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", EnrolledList{Count: len(views), Courses: views})
}

func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "course search")
	defer cancel()

	results, err := h.Svc.Search(ctx, r.URL.Query().Get("query"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", results)
}
