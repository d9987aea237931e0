package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qrverify/internal/model"
	"qrverify/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, data []byte, originalFilename string) (*service.UploadResult, error) {
	args := m.Called(ctx, data, originalFilename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) Verify(ctx context.Context, publicID string) (*model.Document, error) {
	args := m.Called(ctx, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}
