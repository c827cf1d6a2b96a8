package watchdog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/deadman/internal/domain"
)

func newTestScanner(profiles []domain.Profile, err error, mode domain.ResetMode, now time.Time) (*Scanner, *MockProfiles) {
	m := new(MockProfiles)
	m.On("ListMonitoredProfiles", mock.Anything).Return(profiles, err)
	s := NewScanner(m, mode)
	s.now = func() time.Time { return now }
	return s, m
}

func profileAt(id string, last *time.Time, interval float64, created time.Time) domain.Profile {
	return domain.Profile{
		UserID:               id,
		LastCheckinAt:        last,
		CheckinIntervalHours: interval,
		Timezone:             "Europe/Rome",
		MonitoringEnabled:    true,
		CreatedAt:            created,
	}
}

func TestScan_OverdueAfterFullInterval(t *testing.T) {
	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Hour)
	created := now.Add(-30 * 24 * time.Hour)

	for _, mode := range []domain.ResetMode{domain.ResetMidnight, domain.ResetMinutes} {
		t.Run(string(mode), func(t *testing.T) {
			s, m := newTestScanner([]domain.Profile{profileAt("u1", &last, 24, created)}, nil, mode, now)

			users, err := s.Scan(context.Background())
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, "u1", users[0].UserID)
			assert.InDelta(t, 6.0, users[0].HoursOverdue, 1e-9)
			assert.Equal(t, 6, users[0].FloorHoursOverdue())
			m.AssertExpectations(t)
		})
	}
}

func TestScan_NotOverdueBeforeInterval(t *testing.T) {
	// 23:00 Rome yesterday, 00:30 Rome today: one calendar day, 1.5 hours elapsed.
	last := time.Date(2025, time.March, 9, 22, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.March, 9, 23, 30, 0, 0, time.UTC)
	created := last.Add(-72 * time.Hour)

	s, _ := newTestScanner([]domain.Profile{profileAt("u1", &last, 24, created)}, nil, domain.ResetMidnight, now)
	users, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestScan_PausedExcluded(t *testing.T) {
	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	last := now.Add(-100 * time.Hour)
	p := profileAt("u1", &last, 24, now.Add(-200*time.Hour))
	p.MonitoringEnabled = false

	s, _ := newTestScanner([]domain.Profile{p}, nil, domain.ResetMinutes, now)
	users, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestScan_NeverCheckedInUsesCreatedAt(t *testing.T) {
	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	fresh := profileAt("fresh", nil, 24, now.Add(-2*time.Hour))
	stale := profileAt("stale", nil, 24, now.Add(-26*time.Hour))

	s, _ := newTestScanner([]domain.Profile{fresh, stale}, nil, domain.ResetMinutes, now)
	users, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "stale", users[0].UserID)
	assert.Nil(t, users[0].LastCheckinAt)
	assert.Equal(t, 2, users[0].FloorHoursOverdue())
}

func TestScan_StoreErrorAborts(t *testing.T) {
	s, _ := newTestScanner(nil, errors.New("db locked"), domain.ResetMidnight, time.Now())
	users, err := s.Scan(context.Background())
	assert.ErrorContains(t, err, "db locked")
	assert.Nil(t, users)
}

func TestFloorHoursOverdue(t *testing.T) {
	assert.Equal(t, 6, OverdueUser{HoursOverdue: 6.9}.FloorHoursOverdue())
	assert.Equal(t, 0, OverdueUser{HoursOverdue: 0.2}.FloorHoursOverdue())
}
