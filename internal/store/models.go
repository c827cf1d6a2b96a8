package store

import (
	"database/sql"
	"time"

	"github.com/ykvlv/deadman/internal/domain"
)

// Timestamps are stored as unix milliseconds (UTC).

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := fromMillis(ns.Int64)
	return &t
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const profileColumns = `user_id, display_name, last_checkin_at, checkin_interval_hours,
	checkin_time, timezone, monitoring_enabled, is_premium, created_at`

func scanProfile(s rowScanner) (*domain.Profile, error) {
	var (
		p          domain.Profile
		lastNS     sql.NullInt64
		monitoring int
		premium    int
		createdAt  int64
	)
	if err := s.Scan(
		&p.UserID, &p.DisplayName, &lastNS, &p.CheckinIntervalHours,
		&p.CheckinTime, &p.Timezone, &monitoring, &premium, &createdAt,
	); err != nil {
		return nil, err
	}
	p.LastCheckinAt = fromNullMillis(lastNS)
	p.MonitoringEnabled = monitoring != 0
	p.IsPremium = premium != 0
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

const contactColumns = `id, user_id, name, email, phone, priority, created_at`

func scanContact(s rowScanner) (domain.EmergencyContact, error) {
	var (
		c         domain.EmergencyContact
		phone     sql.NullString
		createdAt int64
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &phone, &c.Priority, &createdAt); err != nil {
		return c, err
	}
	c.Phone = phone.String
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

const alertColumns = `id, user_id, contact_id, channel, status, triggered_at, updated_at`

func scanAlert(s rowScanner) (domain.Alert, error) {
	var (
		a           domain.Alert
		channel     string
		status      string
		triggeredAt int64
		updatedAt   int64
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.ContactID, &channel, &status, &triggeredAt, &updatedAt); err != nil {
		return a, err
	}
	a.Channel = domain.Channel(channel)
	a.Status = domain.AlertStatus(status)
	a.TriggeredAt = fromMillis(triggeredAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}
