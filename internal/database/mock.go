package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockApexRepository struct {
	mock.Mock
}

func (m *MockApexRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockApexRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockApexRepository) GetUserById(ctx context.Context, id int) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockApexRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockApexRepository) ListUsers(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).([]User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockApexRepository) GrantMembership(ctx context.Context, id int) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockApexRepository) GrantAdmin(ctx context.Context, id int) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockApexRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (MessageWithAuthor, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(MessageWithAuthor), args.Error(1)
}
func (m *MockApexRepository) ListMessages(ctx context.Context) ([]Message, error) {
	args := m.Called(ctx)
	if messages, ok := args.Get(0).([]Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockApexRepository) ListMessagesWithAuthors(ctx context.Context) ([]MessageWithAuthor, error) {
	args := m.Called(ctx)
	if messages, ok := args.Get(0).([]MessageWithAuthor); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockApexRepository) DeleteMessage(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
