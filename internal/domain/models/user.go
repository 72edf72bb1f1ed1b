// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered identity: student, instructor or admin.
//
// NOTE:
//   - Role is written once at signup. The only later role write is the
//     admin_email promotion performed at startup.
//   - PasswordHash and the follow edges are never serialized to clients.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	AuthMethod   string             `bson:"auth_method" json:"authMethod"` // password | google
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`

	Bio          string `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfileImage string `bson:"profile_image,omitempty" json:"profileImage,omitempty"`

	IsVerified bool `bson:"is_verified" json:"isVerified"`
	IsBanned   bool `bson:"is_banned" json:"isBanned"`

	Followers      []primitive.ObjectID `bson:"followers,omitempty" json:"-"`
	Following      []primitive.ObjectID `bson:"following,omitempty" json:"-"`
	FollowersCount int                  `bson:"followers_count" json:"followersCount"`
	FollowingCount int                  `bson:"following_count" json:"followingCount"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserRef is the populated form of a user reference embedded in course payloads.
type UserRef struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email,omitempty"`

	ProfileImage string `json:"profileImage,omitempty"`
}

// Profile is the public view of a user.
type Profile struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	Role           Role               `json:"role"`
	Bio            string             `json:"bio,omitempty"`
	ProfileImage   string             `json:"profileImage,omitempty"`
	FollowersCount int                `json:"followersCount"`
	FollowingCount int                `json:"followingCount"`
	CreatedAt      time.Time          `json:"createdAt"`
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, ProfileImage: u.ProfileImage}
}

func (u User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		Role:           u.Role,
		Bio:            u.Bio,
		ProfileImage:   u.ProfileImage,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
	}
}

// Follows reports whether u has a following edge to other.
func (u User) Follows(other primitive.ObjectID) bool {
	for _, id := range u.Following {
		if id == other {
			return true
		}
	}
	return false
}
