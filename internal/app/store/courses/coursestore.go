// internal/app/store/courses/coursestore.go
package coursestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/search"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var _ store.CourseRepository = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Collection is the MongoDB collection holding courses.
const Collection = "courses"

// IndexModels covers owner and roster queries and the title sort.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "instructor", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_courses_instructor")},
		{Keys: bson.D{{Key: "students", Value: 1}}, Options: options.Index().SetName("idx_courses_students")},
		{Keys: bson.D{{Key: "title_ci", Value: 1}}, Options: options.Index().SetName("idx_courses_title_ci")},
	}
}

// Create inserts a course, setting TitleCI and timestamps. The roster and
// media list start empty, never null.
func (s *Store) Create(ctx context.Context, c models.Course) (models.Course, error) {
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
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Course{}, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

// GetByID returns a course by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Course, error) {
	var c models.Course
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Course{}, store.ErrNotFound
		}
		return models.Course{}, err
	}
	return c, nil
}

// Update builds a selective $set so unset fields are not clobbered, pushes
// new media onto video_urls and returns the course after the write.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p models.CoursePatch) (models.Course, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if t := strings.TrimSpace(p.Title); t != "" {
		set["title"] = t
		set["title_ci"] = text.Fold(t)
	}
	if p.Description != "" {
		set["description"] = p.Description
	}
	if p.Category != "" {
		set["category"] = p.Category
	}
	if p.ThumbnailURL != "" {
		set["thumbnail_url"] = p.ThumbnailURL
	}

	upd := bson.M{"$set": set}
	if len(p.VideoURLs) > 0 {
		upd["$push"] = bson.M{"video_urls": bson.M{"$each": p.VideoURLs}}
	}

	var out models.Course
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Course{}, store.ErrNotFound
		}
		return models.Course{}, err
	}
	return out, nil
}

// Delete removes a course by ID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns every course, newest first.
func (s *Store) List(ctx context.Context) ([]models.Course, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// ListByInstructor returns the courses owned by instructorID, newest first.
func (s *Store) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]models.Course, error) {
	return s.find(ctx, bson.M{"instructor": instructorID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// ListByStudent returns the courses whose roster contains studentID.
func (s *Store) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Course, error) {
	return s.find(ctx, bson.M{"students": studentID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// AddStudent is the roster write for enrollment. The filter only matches
// when the student is absent and $addToSet keeps set semantics even if two
// requests race, so the roster never holds a duplicate. On no match a
// second read tells "course gone" apart from "already enrolled".
func (s *Store) AddStudent(ctx context.Context, courseID, studentID primitive.ObjectID) (models.Course, error) {
	var out models.Course
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": courseID, "students": bson.M{"$ne": studentID}},
		bson.M{
			"$addToSet": bson.M{"students": studentID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Course{}, err
	}

	n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": courseID}, options.Count().SetLimit(1))
	if cerr != nil {
		return models.Course{}, cerr
	}
	if n == 0 {
		return models.Course{}, store.ErrNotFound
	}
	return models.Course{}, store.ErrAlreadyEnrolled
}

// Search matches q literally against title, description and category in
// the store's natural order. Only the summary fields are loaded.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]models.Course, error) {
	filter, ok := search.ContainsAny(q, "title", "description", "category")
	if !ok || limit <= 0 {
		return []models.Course{}, nil
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{
			"title":         1,
			"description":   1,
			"category":      1,
			"thumbnail_url": 1,
			"instructor":    1,
		})
	return s.find(ctx, filter, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Course, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Course{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
