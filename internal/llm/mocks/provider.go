// internal/llm/mocks/provider.go

package mocks

import (
	"context"

	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/stretchr/testify/mock"
)

// Provider is a mock type for the Provider type
type Provider struct {
	mock.Mock
}

// CompleteText provides a mock function with given fields: ctx, req
func (_m *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ret := _m.Called(ctx, req)

	var r0 *llm.CompletionResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, llm.CompletionRequest) *llm.CompletionResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*llm.CompletionResponse)
	}

	if rf, ok := ret.Get(1).(func(context.Context, llm.CompletionRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetName provides a mock function with given fields:
func (_m *Provider) GetName() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// NewProvider creates a new instance of Provider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *Provider {
	m := &Provider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ llm.Provider = (*Provider)(nil)
