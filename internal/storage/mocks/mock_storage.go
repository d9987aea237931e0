package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"qrverify/internal/storage"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, r io.Reader, opt storage.PutObjectOptions) (storage.Object, error) {
	args := m.Called(ctx, r, opt)
	if f, ok := args.Get(0).(func(context.Context, io.Reader, storage.PutObjectOptions) storage.Object); ok {
		return f(ctx, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.Object), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
