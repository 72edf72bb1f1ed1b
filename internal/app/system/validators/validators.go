// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	coursestore "github.com/dalemusser/learnhub/internal/app/store/courses"
	userstore "github.com/dalemusser/learnhub/internal/app/store/users"
	"github.com/dalemusser/learnhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the users and courses collections when missing and
// attaches their JSON-Schema validators. Servers without collMod support
// (some DocumentDB versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	for _, c := range []struct {
		name   string
		schema bson.M
	}{
		{userstore.Collection, UsersSchema()},
		{coursestore.Collection, CoursesSchema()},
	} {
		if err := ensureCollection(ctx, db, c.name, logger); err != nil {
			problems = append(problems, c.name+": "+err.Error())
			continue
		}
		if err := setValidator(ctx, db, c.name, c.schema); err != nil {
			if unsupported(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", c.name))
				continue
			}
			problems = append(problems, c.name+": "+err.Error())
			continue
		}
		logger.Info("validator ensured", zap.String("collection", c.name))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if hasCode(err, 48) || strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

// unsupported matches NoSuchCommand (59) and CommandNotSupported (115).
func unsupported(err error) bool {
	if hasCode(err, 59) || hasCode(err, 115) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such command") ||
		strings.Contains(s, "not implemented") ||
		strings.Contains(s, "not supported")
}

func hasCode(err error, code int32) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.Code == code
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func authMethodEnum() bson.A {
	out := bson.A{}
	for _, m := range models.AuthMethods {
		out = append(out, m)
	}
	return out
}

// UsersSchema rejects documents without a name, email or known role.
func UsersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "role", "auth_method"},
			"properties": bson.M{
				"name":          nonBlank,
				"name_ci":       bson.M{"bsonType": "string"},
				"email":         nonBlank,
				"password_hash": bson.M{"bsonType": "string"},
				"role":          bson.M{"enum": bson.A{string(models.RoleStudent), string(models.RoleInstructor), string(models.RoleAdmin)}},
				"auth_method":   bson.M{"enum": authMethodEnum()},
				"is_verified":   bson.M{"bsonType": "bool"},
				"is_banned":     bson.M{"bsonType": "bool"},
				"followers":     bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"following":     bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}

// CoursesSchema requires a title and an instructor reference.
func CoursesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "instructor"},
			"properties": bson.M{
				"title":       nonBlank,
				"title_ci":    bson.M{"bsonType": "string"},
				"description": bson.M{"bsonType": "string"},
				"category":    bson.M{"bsonType": "string"},
				"video_urls":  bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"instructor":  bson.M{"bsonType": "objectId"},
				"students":    bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"created_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}
