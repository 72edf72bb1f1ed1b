// Package memstore provides mutex-guarded, map-backed implementations of
// the store repositories. Service and handler tests run against these
// instead of MongoDB; semantics match the Mongo stores, including
// add-if-absent enrollment.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/search"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Courses is an in-memory store.CourseRepository.
type Courses struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]models.Course

	// Writes counts mutating calls that changed state; tests assert
	// "no write" with it.
	Writes int
	// Err, when set, is returned by every call.
	Err error
}

var _ store.CourseRepository = (*Courses)(nil)

func NewCourses() *Courses {
	return &Courses{rows: make(map[primitive.ObjectID]models.Course)}
}

// Put stores c as-is, for seeding tests. It does not count as a write.
func (m *Courses) Put(c models.Course) models.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []primitive.ObjectID{}
	}
	if c.VideoURLs == nil {
		c.VideoURLs = []string{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.rows[c.ID] = copyCourse(c)
	return c
}

func (m *Courses) Create(ctx context.Context, c models.Course) (models.Course, error) {
	if m.Err != nil {
		return models.Course{}, m.Err
	}
	if strings.TrimSpace(c.Title) == "" {
		return models.Course{}, errors.New("title is required")
	}
	if c.InstructorID.IsZero() {
		return models.Course{}, errors.New("instructor is required")
	}
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.TitleCI = text.Fold(c.Title)
	if c.VideoURLs == nil {
		c.VideoURLs = []string{}
	}
	c.StudentIDs = []primitive.ObjectID{}
	c.CreatedAt, c.UpdatedAt = now, now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = copyCourse(c)
	m.Writes++
	return copyCourse(c), nil
}

func (m *Courses) GetByID(ctx context.Context, id primitive.ObjectID) (models.Course, error) {
	if m.Err != nil {
		return models.Course{}, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.rows[id]
	if !ok {
		return models.Course{}, store.ErrNotFound
	}
	return copyCourse(c), nil
}

func (m *Courses) Update(ctx context.Context, id primitive.ObjectID, p models.CoursePatch) (models.Course, error) {
	if m.Err != nil {
		return models.Course{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return models.Course{}, store.ErrNotFound
	}
	if t := strings.TrimSpace(p.Title); t != "" {
		c.Title = t
		c.TitleCI = text.Fold(t)
	}
	if p.Description != "" {
		c.Description = p.Description
	}
	if p.Category != "" {
		c.Category = p.Category
	}
	if p.ThumbnailURL != "" {
		c.ThumbnailURL = p.ThumbnailURL
	}
	c.VideoURLs = append(c.VideoURLs, p.VideoURLs...)
	c.UpdatedAt = time.Now().UTC()
	m.rows[id] = c
	m.Writes++
	return copyCourse(c), nil
}

func (m *Courses) Delete(ctx context.Context, id primitive.ObjectID) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	m.Writes++
	return nil
}

func (m *Courses) List(ctx context.Context) ([]models.Course, error) {
	return m.filter(func(models.Course) bool { return true })
}

func (m *Courses) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]models.Course, error) {
	return m.filter(func(c models.Course) bool { return c.InstructorID == instructorID })
}

func (m *Courses) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Course, error) {
	return m.filter(func(c models.Course) bool { return c.HasStudent(studentID) })
}

func (m *Courses) AddStudent(ctx context.Context, courseID, studentID primitive.ObjectID) (models.Course, error) {
	if m.Err != nil {
		return models.Course{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[courseID]
	if !ok {
		return models.Course{}, store.ErrNotFound
	}
	if c.HasStudent(studentID) {
		return models.Course{}, store.ErrAlreadyEnrolled
	}
	c.StudentIDs = append(c.StudentIDs, studentID)
	c.UpdatedAt = time.Now().UTC()
	m.rows[courseID] = c
	m.Writes++
	return copyCourse(c), nil
}

func (m *Courses) Search(ctx context.Context, q string, limit int) ([]models.Course, error) {
	if strings.TrimSpace(q) == "" || limit <= 0 {
		return []models.Course{}, nil
	}
	out, err := m.filter(func(c models.Course) bool {
		return search.Matches(q, c.Title, c.Description, c.Category)
	})
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].StudentIDs = nil
		out[i].VideoURLs = nil
	}
	return out, nil
}

// filter returns matches newest first, like the Mongo store's sorted lists.
func (m *Courses) filter(keep func(models.Course) bool) ([]models.Course, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Course{}
	for _, c := range m.rows {
		if keep(c) {
			out = append(out, copyCourse(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func copyCourse(c models.Course) models.Course {
	c.StudentIDs = append([]primitive.ObjectID{}, c.StudentIDs...)
	c.VideoURLs = append([]string{}, c.VideoURLs...)
	return c
}
