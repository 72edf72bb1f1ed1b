package metricsstore

import (
	"context"
	"time"

	coursestore "github.com/dalemusser/learnhub/internal/app/store/courses"
	userstore "github.com/dalemusser/learnhub/internal/app/store/users"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Counts is the set of catalog totals exported as gauges.
type Counts struct {
	Students    int64
	Instructors int64
	Admins      int64
	Courses     int64
	Enrollments int64 // sum of roster sizes
}

// FetchCounts returns the catalog totals.
// Tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	users := db.Collection(userstore.Collection)

	for role, dst := range map[models.Role]*int64{
		models.RoleStudent:    &out.Students,
		models.RoleInstructor: &out.Instructors,
		models.RoleAdmin:      &out.Admins,
	} {
		if n, err := users.CountDocuments(ctx, bson.M{"role": role}); err == nil {
			*dst = n
		}
	}

	courses := db.Collection(coursestore.Collection)
	if n, err := courses.CountDocuments(ctx, bson.M{}); err == nil {
		out.Courses = n
	}

	cur, err := courses.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": bson.M{"$size": bson.M{"$ifNull": bson.A{"$students", bson.A{}}}}},
		}}},
	})
	if err == nil {
		var rows []struct {
			Total int64 `bson:"total"`
		}
		if cur.All(ctx, &rows) == nil && len(rows) == 1 {
			out.Enrollments = rows[0].Total
		}
	}
	return out
}

/* ------------------------- Prometheus collector ------------------------- */

var (
	usersDesc  = prometheus.NewDesc("learnhub_users", "Registered users by role.", []string{"role"}, nil)
	courseDesc = prometheus.NewDesc("learnhub_courses", "Courses in the catalog.", nil, nil)
	enrollDesc = prometheus.NewDesc("learnhub_enrollments", "Student enrollments across all courses.", nil, nil)
)

// Collector reads Counts on every scrape.
type Collector struct {
	db      *mongo.Database
	timeout time.Duration
	log     *zap.Logger
}

func NewCollector(db *mongo.Database, timeout time.Duration, logger *zap.Logger) *Collector {
	return &Collector{db: db, timeout: timeout, log: logger}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- usersDesc
	ch <- courseDesc
	ch <- enrollDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	n := FetchCounts(ctx, c.db)
	c.log.Debug("catalog counts collected", zap.Duration("took", time.Since(start)))

	ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue, float64(n.Students), string(models.RoleStudent))
	ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue, float64(n.Instructors), string(models.RoleInstructor))
	ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue, float64(n.Admins), string(models.RoleAdmin))
	ch <- prometheus.MustNewConstMetric(courseDesc, prometheus.GaugeValue, float64(n.Courses))
	ch <- prometheus.MustNewConstMetric(enrollDesc, prometheus.GaugeValue, float64(n.Enrollments))
}
