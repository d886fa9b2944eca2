package stats

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) UserRegistered() {
	m.Called()
}
func (m *MockStatsUpdater) LoginAttempt(success bool) {
	m.Called(success)
}
func (m *MockStatsUpdater) MessagePosted() {
	m.Called()
}
func (m *MockStatsUpdater) MessageDeleted() {
	m.Called()
}
func (m *MockStatsUpdater) PrivilegeGranted(kind string) {
	m.Called(kind)
}
func (m *MockStatsUpdater) FeedSubscriberAdded() {
	m.Called()
}
func (m *MockStatsUpdater) FeedSubscriberRemoved() {
	m.Called()
}
func (m *MockStatsUpdater) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.Called(method, route, status, elapsed)
}
