package watchdog

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ykvlv/deadman/internal/domain"
	"github.com/ykvlv/deadman/internal/events"
	"github.com/ykvlv/deadman/internal/mail"
)

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) ListMonitoredProfiles(ctx context.Context) ([]domain.Profile, error) {
	args := m.Called(ctx)
	profiles, _ := args.Get(0).([]domain.Profile)
	return profiles, args.Error(1)
}

type MockContacts struct {
	mock.Mock
}

func (m *MockContacts) ListContacts(ctx context.Context, userID string) ([]domain.EmergencyContact, error) {
	args := m.Called(ctx, userID)
	contacts, _ := args.Get(0).([]domain.EmergencyContact)
	return contacts, args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateAlert(ctx context.Context, a domain.NewAlert) (domain.Alert, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(domain.Alert), args.Error(1)
}

func (m *MockLedger) UpdateAlertStatus(ctx context.Context, alertID string, status domain.AlertStatus) error {
	args := m.Called(ctx, alertID, status)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Send(ctx context.Context, msg mail.Message) (mail.SendResult, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(mail.SendResult), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAlert(ctx context.Context, ev events.AlertEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockPublisher) Close() error { return nil }

// toEmail matches a message addressed to addr.
func toEmail(addr string) any {
	return mock.MatchedBy(func(msg mail.Message) bool { return msg.To == addr })
}

func accepted(addr string) mail.SendResult {
	return mail.SendResult{Accepted: []string{addr}}
}
