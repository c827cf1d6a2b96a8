// Package account implements the client-side flows shared by the HTTP API and the Telegram bot.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/deadman/internal/domain"
	"github.com/ykvlv/deadman/internal/store"
)

const (
	DefaultHistoryLimit = 30
	maxHistoryLimit     = 200
)

// StatusView is the dashboard state of one user.
type StatusView struct {
	UserID               string        `json:"user_id"`
	DisplayName          string        `json:"display_name"`
	Status               domain.Status `json:"status"`
	LastCheckinAt        *time.Time    `json:"last_checkin_at"`
	CheckinIntervalHours float64       `json:"checkin_interval_hours"`
	CheckinTime          string        `json:"checkin_time"`
	Timezone             string        `json:"timezone"`
	HoursUntilNext       float64       `json:"hours_until_next"`
	DaysWithoutCheckin   float64       `json:"days_without_checkin"`
	CanCheckIn           bool          `json:"can_checkin"`
	MonitoringEnabled    bool          `json:"monitoring_enabled"`
	IsPremium            bool          `json:"is_premium"`
	ContactCount         int           `json:"contact_count"`
	ContactLimit         int           `json:"contact_limit"`
}

// Service wraps the store with validation and check-in gating.
type Service struct {
	repo       store.Repo
	mode       domain.ResetMode
	resetAfter time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// New builds a Service. resetAfter only matters in ResetMinutes mode.
func New(repo store.Repo, mode domain.ResetMode, resetAfter time.Duration, log *zap.Logger) *Service {
	if mode == "" {
		mode = domain.ResetMidnight
	}
	return &Service{repo: repo, mode: mode, resetAfter: resetAfter, log: log, now: time.Now}
}

func (s *Service) GetOrCreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.repo.GetOrCreateProfile(ctx, userID)
}

// UpdateSettings validates and applies a partial settings change.
func (s *Service) UpdateSettings(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if upd.CheckinIntervalHours != nil {
		if err := domain.ValidateInterval(*upd.CheckinIntervalHours); err != nil {
			return nil, err
		}
	}
	if upd.CheckinTime != nil {
		hhmm, err := domain.ParseCheckinTime(*upd.CheckinTime)
		if err != nil {
			return nil, err
		}
		upd.CheckinTime = &hhmm
	}
	if upd.Timezone != nil {
		tz, err := domain.ValidateTZ(*upd.Timezone)
		if err != nil {
			return nil, err
		}
		upd.Timezone = &tz
	}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if len([]rune(name)) > 64 {
			return nil, domain.Invalid("display_name", "must be at most 64 characters")
		}
		upd.DisplayName = &name
	}

	if _, err := s.repo.GetOrCreateProfile(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.UpdateProfile(ctx, userID, upd)
}

// SetMonitoring pauses or resumes monitoring.
func (s *Service) SetMonitoring(ctx context.Context, userID string, enabled bool) (*domain.Profile, error) {
	return s.UpdateSettings(ctx, userID, domain.ProfileUpdate{MonitoringEnabled: &enabled})
}

// CheckIn records a check-in if the reset window allows it. The window is
// checked by the store in the same transaction as the write.
func (s *Service) CheckIn(ctx context.Context, userID string) (domain.CheckIn, error) {
	p, err := s.repo.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return domain.CheckIn{}, err
	}
	loc := p.Location()
	ci, err := s.repo.RecordCheckIn(ctx, userID, func(last *time.Time) bool {
		p.LastCheckinAt = last
		return domain.CanCheckIn(last, s.mode, s.resetAfter, s.now(), loc)
	})
	if errors.Is(err, domain.ErrCheckinTooSoon) {
		return domain.CheckIn{}, &domain.ValidationError{
			Field:   "checkin",
			Message: s.tooSoonMessage(p),
			Err:     domain.ErrCheckinTooSoon,
		}
	}
	if err != nil {
		return domain.CheckIn{}, err
	}
	s.log.Info("check-in recorded", zap.String("userID", userID))
	return ci, nil
}

func (s *Service) tooSoonMessage(p *domain.Profile) string {
	if s.mode == domain.ResetMinutes && p.LastCheckinAt != nil {
		left := s.resetAfter - s.now().Sub(*p.LastCheckinAt)
		mins := int(left.Round(time.Minute) / time.Minute)
		if mins < 1 {
			mins = 1
		}
		return fmt.Sprintf("already checked in; next check-in available in %d min", mins)
	}
	return "already checked in today"
}

// Status computes the dashboard view at the current time.
func (s *Service) Status(ctx context.Context, userID string) (StatusView, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return StatusView{}, err
	}
	contacts, err := s.repo.ListContacts(ctx, userID)
	if err != nil {
		return StatusView{}, err
	}

	now := s.now()
	loc := p.Location()
	return StatusView{
		UserID:               p.UserID,
		DisplayName:          p.DisplayName,
		Status:               domain.Evaluate(p, s.mode, now),
		LastCheckinAt:        p.LastCheckinAt,
		CheckinIntervalHours: p.CheckinIntervalHours,
		CheckinTime:          p.CheckinTime,
		Timezone:             p.Timezone,
		HoursUntilNext:       domain.HoursUntilNext(p.LastCheckinAt, p.CheckinIntervalHours, now),
		DaysWithoutCheckin:   domain.DaysWithoutCheckin(p.LastCheckinAt, p.CreatedAt, s.mode, now, loc),
		CanCheckIn:           domain.CanCheckIn(p.LastCheckinAt, s.mode, s.resetAfter, now, loc),
		MonitoringEnabled:    p.MonitoringEnabled,
		IsPremium:            p.IsPremium,
		ContactCount:         len(contacts),
		ContactLimit:         p.ContactLimit(),
	}, nil
}

// AddContact creates an emergency contact; the store enforces the tier cap.
func (s *Service) AddContact(ctx context.Context, userID string, nc domain.NewContact) (domain.EmergencyContact, error) {
	if _, err := s.repo.GetOrCreateProfile(ctx, userID); err != nil {
		return domain.EmergencyContact{}, err
	}
	c, err := s.repo.CreateContact(ctx, userID, nc)
	if err != nil {
		return domain.EmergencyContact{}, err
	}
	s.log.Info("contact added", zap.String("userID", userID), zap.String("contactID", c.ID))
	return c, nil
}

func (s *Service) ListContacts(ctx context.Context, userID string) ([]domain.EmergencyContact, error) {
	return s.repo.ListContacts(ctx, userID)
}

func (s *Service) DeleteContact(ctx context.Context, userID, contactID string) error {
	return s.repo.DeleteContact(ctx, userID, contactID)
}

// HasContact reports whether onboarding is complete.
func (s *Service) HasContact(ctx context.Context, userID string) (bool, error) {
	contacts, err := s.repo.ListContacts(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(contacts) > 0, nil
}

// History returns recent check-ins, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.CheckIn, error) {
	return s.repo.RecentCheckIns(ctx, userID, clampLimit(limit))
}

// Alerts returns recent alerts raised for the user, newest first.
func (s *Service) Alerts(ctx context.Context, userID string, limit int) ([]domain.Alert, error) {
	return s.repo.ListAlerts(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}

// IsNotFound reports whether err means a missing profile or contact.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrProfileNotFound) || errors.Is(err, domain.ErrContactNotFound)
}
