package store

import (
	"context"
	"time"

	"github.com/ykvlv/deadman/internal/domain"
)

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	GetOrCreateProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error)
	ListMonitoredProfiles(ctx context.Context) ([]domain.Profile, error)
}

// CheckinGate decides from the stored last check-in whether a new one is allowed.
type CheckinGate func(last *time.Time) bool

// CheckinStore appends check-ins and keeps the profile's last_checkin_at in sync.
type CheckinStore interface {
	RecordCheckIn(ctx context.Context, userID string, allow CheckinGate) (domain.CheckIn, error)
	RecentCheckIns(ctx context.Context, userID string, limit int) ([]domain.CheckIn, error)
}

// ContactStore manages emergency contacts; CreateContact enforces the tier cap.
type ContactStore interface {
	ListContacts(ctx context.Context, userID string) ([]domain.EmergencyContact, error)
	CreateContact(ctx context.Context, userID string, c domain.NewContact) (domain.EmergencyContact, error)
	DeleteContact(ctx context.Context, userID, contactID string) error
}

// AlertLedger is the durable record of notification attempts.
type AlertLedger interface {
	CreateAlert(ctx context.Context, a domain.NewAlert) (domain.Alert, error)
	UpdateAlertStatus(ctx context.Context, alertID string, status domain.AlertStatus) error
	ListAlerts(ctx context.Context, userID string, limit int) ([]domain.Alert, error)
}

// Repo is the full storage surface of the service.
type Repo interface {
	ProfileStore
	CheckinStore
	ContactStore
	AlertLedger
	Close() error
}
