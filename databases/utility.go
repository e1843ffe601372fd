package databases

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Paging defaults shared by every listing
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 1000
)

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// NormalizePaging clamps a 1-based page and a limit to sane values
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// PaginatedOpts returns find options for a 1-based page with an optional sort
func PaginatedOpts(page, limit int, sort bson.D) *options.FindOptions {
	page, limit = NormalizePaging(page, limit)
	opts := newMongoPaginate(limit, page).getPaginatedOpts()
	if sort != nil {
		opts.SetSort(sort)
	}
	return opts
}

// Newest sorts by field descending
func Newest(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// ByName sorts alphabetically
func ByName() bson.D {
	return bson.D{{Key: "name", Value: 1}}
}

// SearchRegex builds a case-insensitive contains match for term, with the
// term quoted so user input is never interpreted as a pattern
func SearchRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

// NotDeleted filters out soft-deleted documents
func NotDeleted() bson.M {
	return bson.M{"deletedAt": bson.M{"$exists": false}}
}

func objectID(v interface{}) (primitive.ObjectID, bool) {
	id, ok := v.(primitive.ObjectID)
	return id, ok
}
