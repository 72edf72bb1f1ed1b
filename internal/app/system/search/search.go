// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContainsAny builds a filter matching documents where any of fields
// contains q, case-insensitively. q is matched literally: regex
// metacharacters are escaped. A blank q returns ok=false and callers
// return an empty result instead of scanning the collection.
//
//	filter, ok := search.ContainsAny(q, "title", "description", "category")
//	if !ok {
//	    return nil, nil
//	}
func ContainsAny(q string, fields ...string) (bson.M, bool) {
	q = strings.TrimSpace(q)
	if q == "" || len(fields) == 0 {
		return nil, false
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}, true
}

// Matches reports whether any of values contains q case-insensitively.
// It mirrors ContainsAny for in-memory stores.
func Matches(q string, values ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return false
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
