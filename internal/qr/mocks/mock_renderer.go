package mocks

import "github.com/stretchr/testify/mock"

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(payload string) ([]byte, error) {
	args := m.Called(payload)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
