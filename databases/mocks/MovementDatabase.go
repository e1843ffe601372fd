package mocks

import (
	context "context"

	models "github.com/linesmerrill/forensic-case-api/models"
	mock "github.com/stretchr/testify/mock"
	options "go.mongodb.org/mongo-driver/mongo/options"
)

// MovementDatabase is a mock type for the MovementDatabase type
type MovementDatabase struct {
	mock.Mock
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *MovementDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.OccurrenceMovement, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	ret := _m.Called(unroll([]interface{}{ctx, filter}, _va...)...)

	var r0 []models.OccurrenceMovement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.OccurrenceMovement)
	}

	return r0, ret.Error(1)
}

// InsertOne provides a mock function with given fields: ctx, m
func (_m *MovementDatabase) InsertOne(ctx context.Context, m models.OccurrenceMovement) (*models.OccurrenceMovement, error) {
	ret := _m.Called(ctx, m)

	var r0 *models.OccurrenceMovement
	if rf, ok := ret.Get(0).(func(context.Context, models.OccurrenceMovement) *models.OccurrenceMovement); ok {
		r0 = rf(ctx, m)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.OccurrenceMovement)
	}

	return r0, ret.Error(1)
}

// LatestDeadline provides a mock function with given fields: ctx, occurrenceID
func (_m *MovementDatabase) LatestDeadline(ctx context.Context, occurrenceID string) (*models.OccurrenceMovement, error) {
	ret := _m.Called(ctx, occurrenceID)

	var r0 *models.OccurrenceMovement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.OccurrenceMovement)
	}

	return r0, ret.Error(1)
}

// UpdateFlags provides a mock function with given fields: ctx, m, isOverdue, isNearDeadline
func (_m *MovementDatabase) UpdateFlags(ctx context.Context, m models.OccurrenceMovement, isOverdue bool, isNearDeadline bool) error {
	ret := _m.Called(ctx, m, isOverdue, isNearDeadline)
	return ret.Error(0)
}
