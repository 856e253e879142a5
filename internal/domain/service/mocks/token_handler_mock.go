package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/soapproxy/internal/domain/models"
)

type MockSecurityTokenHandler struct {
	mock.Mock
}

func (m *MockSecurityTokenHandler) TokenType() models.TokenType {
	args := m.Called()
	return args.Get(0).(models.TokenType)
}

func (m *MockSecurityTokenHandler) CanWriteToken() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSecurityTokenHandler) WriteToken(w io.Writer, token models.SecurityToken) error {
	args := m.Called(w, token)
	return args.Error(0)
}

func (m *MockSecurityTokenHandler) CanReadToken(raw string) bool {
	args := m.Called(raw)
	return args.Bool(0)
}

func (m *MockSecurityTokenHandler) ReadToken(raw string) (models.SecurityToken, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.SecurityToken), args.Error(1)
}
