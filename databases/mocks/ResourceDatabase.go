package mocks

import (
	context "context"

	models "github.com/linesmerrill/forensic-case-api/models"
	mock "github.com/stretchr/testify/mock"
	options "go.mongodb.org/mongo-driver/mongo/options"
)

// ResourceDatabase is a mock type for the ResourceDatabase type
type ResourceDatabase struct {
	mock.Mock
}

// CountDocuments provides a mock function with given fields: ctx, filter
func (_m *ResourceDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	ret := _m.Called(ctx, filter)
	return ret.Get(0).(int64), ret.Error(1)
}

// DeleteOne provides a mock function with given fields: ctx, filter
func (_m *ResourceDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	ret := _m.Called(ctx, filter)
	return ret.Error(0)
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *ResourceDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Resource, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	ret := _m.Called(unroll([]interface{}{ctx, filter}, _va...)...)

	var r0 []models.Resource
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Resource)
	}

	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter
func (_m *ResourceDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Resource, error) {
	ret := _m.Called(ctx, filter)

	var r0 *models.Resource
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Resource)
	}

	return r0, ret.Error(1)
}

// InsertOne provides a mock function with given fields: ctx, r
func (_m *ResourceDatabase) InsertOne(ctx context.Context, r models.Resource) (*models.Resource, error) {
	ret := _m.Called(ctx, r)

	var r0 *models.Resource
	if rf, ok := ret.Get(0).(func(context.Context, models.Resource) *models.Resource); ok {
		r0 = rf(ctx, r)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Resource)
	}

	return r0, ret.Error(1)
}

// UpdateOne provides a mock function with given fields: ctx, filter, update
func (_m *ResourceDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	ret := _m.Called(ctx, filter, update)
	return ret.Error(0)
}
