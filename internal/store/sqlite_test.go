package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/deadman/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "test.db"), "Europe/Rome")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestGetOrCreateProfile_Defaults(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	p, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, float64(domain.DefaultIntervalHours), p.CheckinIntervalHours)
	assert.Equal(t, domain.DefaultCheckinTime, p.CheckinTime)
	assert.Equal(t, "Europe/Rome", p.Timezone)
	assert.True(t, p.MonitoringEnabled)
	assert.False(t, p.IsPremium)
	assert.Nil(t, p.LastCheckinAt)

	again, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, again.CreatedAt)
}

func TestUpdateProfile(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)

	interval := 48.0
	off := false
	name := "Mario"
	p, err := repo.UpdateProfile(ctx, "u1", domain.ProfileUpdate{
		CheckinIntervalHours: &interval,
		MonitoringEnabled:    &off,
		DisplayName:          &name,
	})
	require.NoError(t, err)
	assert.Equal(t, 48.0, p.CheckinIntervalHours)
	assert.False(t, p.MonitoringEnabled)
	assert.Equal(t, "Mario", p.DisplayName)

	_, err = repo.UpdateProfile(ctx, "ghost", domain.ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	monitored, err := repo.ListMonitoredProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, monitored)
}

func TestRecordCheckIn_UpdatesProfile(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	fixed := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	_, err := repo.RecordCheckIn(ctx, "ghost", nil)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	_, err = repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)

	ci, err := repo.RecordCheckIn(ctx, "u1", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ci.ID)
	assert.True(t, ci.CheckinAt.Equal(fixed))

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p.LastCheckinAt)
	assert.True(t, p.LastCheckinAt.Equal(fixed))

	repo.now = func() time.Time { return fixed.Add(time.Hour) }
	_, err = repo.RecordCheckIn(ctx, "u1", nil)
	require.NoError(t, err)

	history, err := repo.RecentCheckIns(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].CheckinAt.After(history[1].CheckinAt))
}

func TestRecordCheckIn_GateSeesStoredValue(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	fixed := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	_, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)

	var seen []*time.Time
	onlyFirst := func(last *time.Time) bool {
		seen = append(seen, last)
		return last == nil
	}

	_, err = repo.RecordCheckIn(ctx, "u1", onlyFirst)
	require.NoError(t, err)

	_, err = repo.RecordCheckIn(ctx, "u1", onlyFirst)
	require.ErrorIs(t, err, domain.ErrCheckinTooSoon)

	require.Len(t, seen, 2)
	assert.Nil(t, seen[0])
	require.NotNil(t, seen[1])
	assert.True(t, seen[1].Equal(fixed))

	history, err := repo.RecentCheckIns(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCreateContact_TierCap(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)

	c1, err := repo.CreateContact(ctx, "u1", domain.NewContact{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, c1.Priority)

	_, err = repo.CreateContact(ctx, "u1", domain.NewContact{Name: "Bob", Email: "bob@example.com"})
	require.ErrorIs(t, err, domain.ErrContactLimit)
	assert.True(t, domain.IsValidation(err))

	premium := true
	_, err = repo.UpdateProfile(ctx, "u1", domain.ProfileUpdate{IsPremium: &premium})
	require.NoError(t, err)

	for i := 0; i < domain.PremiumContactLimit-1; i++ {
		_, err = repo.CreateContact(ctx, "u1", domain.NewContact{Name: "Friend", Email: "f@example.com"})
		require.NoError(t, err)
	}
	_, err = repo.CreateContact(ctx, "u1", domain.NewContact{Name: "Extra", Email: "x@example.com"})
	require.ErrorIs(t, err, domain.ErrContactLimit)

	contacts, err := repo.ListContacts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, contacts, domain.PremiumContactLimit)
	for i := 1; i < len(contacts); i++ {
		assert.LessOrEqual(t, contacts[i-1].Priority, contacts[i].Priority)
	}
}

func TestListContacts_PriorityOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	premium := true
	_, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)
	_, err = repo.UpdateProfile(ctx, "u1", domain.ProfileUpdate{IsPremium: &premium})
	require.NoError(t, err)

	_, err = repo.CreateContact(ctx, "u1", domain.NewContact{Name: "Second", Email: "b@example.com", Priority: 2})
	require.NoError(t, err)
	_, err = repo.CreateContact(ctx, "u1", domain.NewContact{Name: "First", Email: "a@example.com", Priority: 1})
	require.NoError(t, err)

	contacts, err := repo.ListContacts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "First", contacts[0].Name)
	assert.Equal(t, "Second", contacts[1].Name)

	require.NoError(t, repo.DeleteContact(ctx, "u1", contacts[0].ID))
	assert.ErrorIs(t, repo.DeleteContact(ctx, "u1", contacts[0].ID), domain.ErrContactNotFound)
	assert.ErrorIs(t, repo.DeleteContact(ctx, "someone-else", contacts[1].ID), domain.ErrContactNotFound)
}

func TestAlertLifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)

	a, err := repo.CreateAlert(ctx, domain.NewAlert{UserID: "u1", ContactID: "c1", Channel: domain.ChannelEmail})
	require.NoError(t, err)
	assert.Equal(t, domain.AlertPending, a.Status)

	require.NoError(t, repo.UpdateAlertStatus(ctx, a.ID, domain.AlertSent))

	err = repo.UpdateAlertStatus(ctx, a.ID, domain.AlertFailed)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = repo.UpdateAlertStatus(ctx, "missing", domain.AlertSent)
	require.ErrorIs(t, err, domain.ErrAlertNotFound)

	err = repo.UpdateAlertStatus(ctx, a.ID, domain.AlertPending)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	alerts, err := repo.ListAlerts(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertSent, alerts[0].Status)
}

func TestCreateAlert_RejectsUnknownChannel(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	_, err := repo.GetOrCreateProfile(ctx, "u1")
	require.NoError(t, err)

	_, err = repo.CreateAlert(ctx, domain.NewAlert{UserID: "u1", ContactID: "c1", Channel: "pigeon"})
	assert.Error(t, err)
}
