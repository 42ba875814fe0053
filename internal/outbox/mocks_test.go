package outbox_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sipelan-service/internal/model"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, html string) error {
	args := m.Called(ctx, to, subject, html)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event model.EventPayload) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
