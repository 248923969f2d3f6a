package service

import (
	"context"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of RealTimeGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) BroadcastMessage(ctx context.Context, msg domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockGateway) BroadcastPresence(ctx context.Context, participants []domain.Participant) error {
	args := m.Called(ctx, participants)
	return args.Error(0)
}

func (m *MockGateway) SendEnvelope(ctx context.Context, env domain.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Save(ctx context.Context, msg domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

// MockPresenceStore is a mock implementation of PresenceStore
type MockPresenceStore struct {
	mock.Mock
}

func (m *MockPresenceStore) Join(ctx context.Context, p domain.Participant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPresenceStore) Leave(ctx context.Context, id domain.ParticipantID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPresenceStore) Get(ctx context.Context, id domain.ParticipantID) (domain.Participant, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Participant), args.Bool(1), args.Error(2)
}

func (m *MockPresenceStore) List(ctx context.Context) ([]domain.Participant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Participant), args.Error(1)
}
