// Package mocks provides test doubles for the predict client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/floodsense/internal/model"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Analyze provides a mock function with given fields: ctx, p
func (_m *MockClient) Analyze(ctx context.Context, p model.Point) (*model.PredictionResult, error) {
	ret := _m.Called(ctx, p)

	if len(ret) == 0 {
		panic("no return value specified for Analyze")
	}

	var r0 *model.PredictionResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.Point) (*model.PredictionResult, error)); ok {
		return rf(ctx, p)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.Point) *model.PredictionResult); ok {
		r0 = rf(ctx, p)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.PredictionResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.Point) error); ok {
		r1 = rf(ctx, p)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
