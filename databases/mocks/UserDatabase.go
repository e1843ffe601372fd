package mocks

import (
	context "context"

	models "github.com/linesmerrill/forensic-case-api/models"
	mock "github.com/stretchr/testify/mock"
	options "go.mongodb.org/mongo-driver/mongo/options"
)

// UserDatabase is a mock type for the UserDatabase type
type UserDatabase struct {
	mock.Mock
}

// CountDocuments provides a mock function with given fields: ctx, filter
func (_m *UserDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	ret := _m.Called(ctx, filter)
	return ret.Get(0).(int64), ret.Error(1)
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *UserDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.User, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	ret := _m.Called(unroll([]interface{}{ctx, filter}, _va...)...)

	var r0 []models.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.User)
	}

	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter
func (_m *UserDatabase) FindOne(ctx context.Context, filter interface{}) (*models.User, error) {
	ret := _m.Called(ctx, filter)

	var r0 *models.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.User)
	}

	return r0, ret.Error(1)
}

// InsertOne provides a mock function with given fields: ctx, u
func (_m *UserDatabase) InsertOne(ctx context.Context, u models.User) (*models.User, error) {
	ret := _m.Called(ctx, u)

	var r0 *models.User
	if rf, ok := ret.Get(0).(func(context.Context, models.User) *models.User); ok {
		r0 = rf(ctx, u)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.User)
	}

	return r0, ret.Error(1)
}

// UpdateOne provides a mock function with given fields: ctx, filter, update
func (_m *UserDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	ret := _m.Called(ctx, filter, update)
	return ret.Error(0)
}
