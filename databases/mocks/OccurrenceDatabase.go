package mocks

import (
	context "context"

	models "github.com/linesmerrill/forensic-case-api/models"
	mock "github.com/stretchr/testify/mock"
	options "go.mongodb.org/mongo-driver/mongo/options"
)

// OccurrenceDatabase is a mock type for the OccurrenceDatabase type
type OccurrenceDatabase struct {
	mock.Mock
}

// CountDocuments provides a mock function with given fields: ctx, filter
func (_m *OccurrenceDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	ret := _m.Called(ctx, filter)
	return ret.Get(0).(int64), ret.Error(1)
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *OccurrenceDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.GeneralOccurrence, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	ret := _m.Called(unroll([]interface{}{ctx, filter}, _va...)...)

	var r0 []models.GeneralOccurrence
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.GeneralOccurrence)
	}

	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter
func (_m *OccurrenceDatabase) FindOne(ctx context.Context, filter interface{}) (*models.GeneralOccurrence, error) {
	ret := _m.Called(ctx, filter)

	var r0 *models.GeneralOccurrence
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GeneralOccurrence)
	}

	return r0, ret.Error(1)
}

// InsertOne provides a mock function with given fields: ctx, o
func (_m *OccurrenceDatabase) InsertOne(ctx context.Context, o models.GeneralOccurrence) (*models.GeneralOccurrence, error) {
	ret := _m.Called(ctx, o)

	var r0 *models.GeneralOccurrence
	if rf, ok := ret.Get(0).(func(context.Context, models.GeneralOccurrence) *models.GeneralOccurrence); ok {
		r0 = rf(ctx, o)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GeneralOccurrence)
	}

	return r0, ret.Error(1)
}

// NextCaseNumber provides a mock function with given fields: ctx, year
func (_m *OccurrenceDatabase) NextCaseNumber(ctx context.Context, year int) (string, error) {
	ret := _m.Called(ctx, year)
	return ret.String(0), ret.Error(1)
}

// UpdateOne provides a mock function with given fields: ctx, filter, update
func (_m *OccurrenceDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	ret := _m.Called(ctx, filter, update)
	return ret.Error(0)
}
