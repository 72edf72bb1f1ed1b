package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCourse_HasStudent(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	c := Course{StudentIDs: []primitive.ObjectID{a}}
	if !c.HasStudent(a) {
		t.Error("expected a on roster")
	}
	if c.HasStudent(b) {
		t.Error("b should not be on roster")
	}
}

func TestCoursePatch_Empty(t *testing.T) {
	if !(CoursePatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	if (CoursePatch{VideoURLs: []string{"x"}}).Empty() {
		t.Error("patch with media is not empty")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"student", RoleStudent, true},
		{" Instructor ", RoleInstructor, true},
		{"ADMIN", RoleAdmin, true},
		{"", "", false},
		{"superadmin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseRole(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
