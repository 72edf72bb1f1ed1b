package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is owned by exactly one instructor and carries its own roster.
// Students holds no duplicates; writes go through $addToSet.
type Course struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title   string             `bson:"title" json:"title"`
	TitleCI string             `bson:"title_ci" json:"-"` // lowercase, diacritics-stripped

	Description string `bson:"description" json:"description"`
	Category    string `bson:"category,omitempty" json:"category"`

	ThumbnailURL string   `bson:"thumbnail_url,omitempty" json:"thumbnailUrl,omitempty"`
	VideoURLs    []string `bson:"video_urls" json:"videoUrls"`

	InstructorID primitive.ObjectID   `bson:"instructor" json:"instructor"`
	StudentIDs   []primitive.ObjectID `bson:"students" json:"students"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasStudent reports whether id is on the roster.
func (c Course) HasStudent(id primitive.ObjectID) bool {
	for _, s := range c.StudentIDs {
		if s == id {
			return true
		}
	}
	return false
}

// CoursePatch holds the optional field edits of an update. Empty strings
// mean "leave unchanged"; VideoURLs are appended.
type CoursePatch struct {
	Title        string
	Description  string
	Category     string
	ThumbnailURL string
	VideoURLs    []string
}

// Empty reports whether the patch carries no change.
func (p CoursePatch) Empty() bool {
	return p.Title == "" && p.Description == "" && p.Category == "" &&
		p.ThumbnailURL == "" && len(p.VideoURLs) == 0
}
