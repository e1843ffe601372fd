package mocks

import (
	context "context"
	time "time"

	mock "github.com/stretchr/testify/mock"
)

// LockDatabase is a mock type for the LockDatabase type
type LockDatabase struct {
	mock.Mock
}

// TryAcquireLock provides a mock function with given fields: ctx, job, owner, ttl
func (_m *LockDatabase) TryAcquireLock(ctx context.Context, job string, owner string, ttl time.Duration) (bool, error) {
	ret := _m.Called(ctx, job, owner, ttl)
	return ret.Bool(0), ret.Error(1)
}

// ReleaseLock provides a mock function with given fields: ctx, job, owner
func (_m *LockDatabase) ReleaseLock(ctx context.Context, job string, owner string) error {
	ret := _m.Called(ctx, job, owner)
	return ret.Error(0)
}
