package mocks

import (
	"context"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockNotificationSink is a mock implementation of services.NotificationSink interface.
type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) Notify(ctx context.Context, trigger *models.Trigger, message string) error {
	args := m.Called(ctx, trigger, message)

	return args.Error(0)
}

// MockDocumentExporter is a mock implementation of services.DocumentExporter interface.
type MockDocumentExporter struct {
	mock.Mock
}

func (m *MockDocumentExporter) Export(ctx context.Context, document *models.Document) (string, error) {
	args := m.Called(ctx, document)

	return args.String(0), args.Error(1)
}

// MockTriggerValidator is a mock implementation of services.TriggerValidator interface.
type MockTriggerValidator struct {
	mock.Mock
}

func (m *MockTriggerValidator) Validate(trigger *models.Trigger) error {
	args := m.Called(trigger)

	return args.Error(0)
}

// MockAccessCache is a mock implementation of services.AccessCache interface.
type MockAccessCache struct {
	mock.Mock
}

func (m *MockAccessCache) Get(ctx context.Context, userID string, target models.Target) (models.AccessLevel, int64, bool) {
	args := m.Called(ctx, userID, target)

	return args.Get(0).(models.AccessLevel), args.Get(1).(int64), args.Bool(2)
}

func (m *MockAccessCache) Set(ctx context.Context, generation int64, userID string, target models.Target, level models.AccessLevel) {
	m.Called(ctx, generation, userID, target, level)
}

func (m *MockAccessCache) Invalidate(ctx context.Context) {
	m.Called(ctx)
}
