package courses

import (
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourseView is a course with its instructor and roster resolved to
// public refs. The outer Instructor and Students shadow the raw id fields
// of the embedded Course when encoded.
type CourseView struct {
	models.Course
	Instructor models.UserRef   `json:"instructor"`
	Students   []models.UserRef `json:"students"`
}

// CourseSummary is the trimmed shape returned by search.
type CourseSummary struct {
	ID           primitive.ObjectID `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	ThumbnailURL string             `json:"thumbnailUrl,omitempty"`
	Instructor   models.UserRef     `json:"instructor"`
}

// EnrolledList is the my-courses payload.
type EnrolledList struct {
	Count   int          `json:"count"`
	Courses []CourseView `json:"courses"`
}

// ref returns the resolved ref for id, or a bare ref when the user is gone.
func ref(refs map[primitive.ObjectID]models.UserRef, id primitive.ObjectID) models.UserRef {
	if r, ok := refs[id]; ok {
		return r
	}
	return models.UserRef{ID: id}
}

func newView(c models.Course, refs map[primitive.ObjectID]models.UserRef) CourseView {
	v := CourseView{
		Course:     c,
		Instructor: ref(refs, c.InstructorID),
		Students:   make([]models.UserRef, 0, len(c.StudentIDs)),
	}
	for _, id := range c.StudentIDs {
		v.Students = append(v.Students, ref(refs, id))
	}
	return v
}

func summarize(c models.Course, refs map[primitive.ObjectID]models.UserRef) CourseSummary {
	in := ref(refs, c.InstructorID)
	in.Email = ""
	in.ProfileImage = ""
	return CourseSummary{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Category:     c.Category,
		ThumbnailURL: c.ThumbnailURL,
		Instructor:   in,
	}
}
