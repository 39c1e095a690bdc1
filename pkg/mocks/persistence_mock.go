package mocks

import (
	"context"

	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of persistence.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (*persistence.Document, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.Document), args.Error(1)
}

func (m *MockStore) GetMany(ctx context.Context, keys []string) ([]*persistence.Document, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.Document), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, doc *persistence.Document) (*persistence.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.Document), args.Error(1)
}

func (m *MockStore) PutMany(ctx context.Context, docs []*persistence.Document) ([]*persistence.Document, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.Document), args.Error(1)
}

func (m *MockStore) ListByScope(ctx context.Context, scope string, types ...string) ([]*persistence.Document, error) {
	args := m.Called(ctx, scope, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.Document), args.Error(1)
}

func (m *MockStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
