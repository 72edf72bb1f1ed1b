// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store/audit"
	coursestore "github.com/dalemusser/learnhub/internal/app/store/courses"
	"github.com/dalemusser/learnhub/internal/app/store/emailverify"
	userstore "github.com/dalemusser/learnhub/internal/app/store/users"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Set is the desired index list for one collection.
type Set struct {
	Collection string
	Models     []mongo.IndexModel
}

// Sets returns every collection's desired indexes, as declared by the stores.
func Sets() []Set {
	return []Set{
		{userstore.Collection, userstore.IndexModels()},
		{coursestore.Collection, coursestore.IndexModels()},
		{emailverify.Collection, emailverify.IndexModels()},
		{audit.Collection, audit.IndexModels()},
	}
}

/*
EnsureAll is called at startup. Reconciling each set is idempotent. Errors
are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string
	for _, s := range Sets() {
		if err := ensureIndexSet(ctx, db.Collection(s.Collection), s.Models, logger); err != nil {
			problems = append(problems, s.Collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile desired indexes against what the collection already has         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func listBySig(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates each desired index. An index with the same keys
// but a different name or uniqueness is dropped and recreated; one that
// matches is reused.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	existing, err := listBySig(ctx, coll)
	if err != nil {
		// A missing collection lists as an error on some servers; treat as empty.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name, unique := "", false
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			if m.Options.Unique != nil {
				unique = *m.Options.Unique
			}
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := logger.With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
		)

		if ex, ok := existing[sig]; ok {
			if ex.Unique == unique && (name == "" || ex.Name == name) {
				log.Debug("reusing existing index")
				continue
			}
			log.Info("replacing index", zap.String("existing", ex.Name))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s: %v", name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if unique && wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index, duplicates present on %s", name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			log.Warn("index ensure failed", zap.Error(err))
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
