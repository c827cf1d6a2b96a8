package watchdog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ykvlv/deadman/internal/domain"
)

// OverdueUser is a monitored profile that has missed its check-in window.
type OverdueUser struct {
	UserID               string
	DisplayName          string
	LastCheckinAt        *time.Time
	CheckinIntervalHours float64
	HoursOverdue         float64 // elapsed hours minus the interval, >= 0
	Timezone             string
}

// FloorHoursOverdue is the whole number of overdue hours shown in messages.
func (u OverdueUser) FloorHoursOverdue() int {
	return int(math.Floor(u.HoursOverdue))
}

// ProfileLister is the part of the profile store the scanner reads.
type ProfileLister interface {
	ListMonitoredProfiles(ctx context.Context) ([]domain.Profile, error)
}

// Scanner finds overdue users.
type Scanner struct {
	profiles ProfileLister
	mode     domain.ResetMode
	now      func() time.Time
}

// NewScanner counts elapsed days with mode; ResetMinutes is meant for short test cycles.
func NewScanner(profiles ProfileLister, mode domain.ResetMode) *Scanner {
	if mode == "" {
		mode = domain.ResetMidnight
	}
	return &Scanner{profiles: profiles, mode: mode, now: time.Now}
}

// Scan returns the overdue users in store order. A store error aborts the scan.
func (s *Scanner) Scan(ctx context.Context) ([]OverdueUser, error) {
	profiles, err := s.profiles.ListMonitoredProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monitored profiles: %w", err)
	}

	now := s.now().UTC()
	var res []OverdueUser
	for i := range profiles {
		if u, ok := overdue(&profiles[i], s.mode, now); ok {
			res = append(res, u)
		}
	}
	return res, nil
}

// overdue requires both a CRITICAL status and a fully elapsed interval.
// Midnight counting alone would flag a 23:00 check-in at 00:30.
func overdue(p *domain.Profile, mode domain.ResetMode, now time.Time) (OverdueUser, bool) {
	if domain.Evaluate(p, mode, now) != domain.StatusCritical {
		return OverdueUser{}, false
	}
	elapsed := domain.HoursElapsed(p, now)
	if elapsed < p.CheckinIntervalHours {
		return OverdueUser{}, false
	}
	return OverdueUser{
		UserID:               p.UserID,
		DisplayName:          p.DisplayName,
		LastCheckinAt:        p.LastCheckinAt,
		CheckinIntervalHours: p.CheckinIntervalHours,
		HoursOverdue:         elapsed - p.CheckinIntervalHours,
		Timezone:             p.Timezone,
	}, true
}
