// Package mocks provides test doubles for the geocode reverser.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockReverser is a mock type for the Reverser interface.
type MockReverser struct {
	mock.Mock
}

// Reverse provides a mock function with given fields: ctx, lat, lng
func (_m *MockReverser) Reverse(ctx context.Context, lat float64, lng float64) (string, error) {
	ret := _m.Called(ctx, lat, lng)

	if len(ret) == 0 {
		panic("no return value specified for Reverse")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64) (string, error)); ok {
		return rf(ctx, lat, lng)
	}
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64) string); ok {
		r0 = rf(ctx, lat, lng)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, float64, float64) error); ok {
		r1 = rf(ctx, lat, lng)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockReverser creates a new instance of MockReverser.
func NewMockReverser(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReverser {
	mock := &MockReverser{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
