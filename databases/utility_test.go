package databases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPaginatedOpts(t *testing.T) {
	opts := PaginatedOpts(3, 20, Newest("createdAt"))
	assert.Equal(t, int64(20), *opts.Limit)
	assert.Equal(t, int64(40), *opts.Skip)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, opts.Sort)

	opts = PaginatedOpts(0, 0, nil)
	assert.Equal(t, int64(DefaultLimit), *opts.Limit)
	assert.Equal(t, int64(0), *opts.Skip)
	assert.Nil(t, opts.Sort)
}

func TestNormalizePaging(t *testing.T) {
	page, limit := NormalizePaging(-1, 5000)
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxLimit, limit)
}

func TestSearchRegexQuotesInput(t *testing.T) {
	re := SearchRegex("2024.0001(")
	assert.Equal(t, `2024\.0001\(`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}
