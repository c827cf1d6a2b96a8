package domain

import "time"

const (
	DefaultIntervalHours = 24.0
	DefaultCheckinTime   = "09:00"

	FreeContactLimit    = 1
	PremiumContactLimit = 5
)

// Profile holds per-user monitoring settings and the denormalized last check-in.
type Profile struct {
	UserID               string
	DisplayName          string
	LastCheckinAt        *time.Time // UTC, nullable
	CheckinIntervalHours float64    // > 0, may be fractional
	CheckinTime          string     // HH:MM, advisory only
	Timezone             string     // IANA name
	MonitoringEnabled    bool
	IsPremium            bool
	CreatedAt            time.Time // UTC
}

// ContactLimit returns how many emergency contacts the profile's tier allows.
func (p *Profile) ContactLimit() int {
	if p.IsPremium {
		return PremiumContactLimit
	}
	return FreeContactLimit
}

// Location resolves the profile timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ProfileUpdate carries a partial settings change; nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName          *string
	CheckinIntervalHours *float64
	CheckinTime          *string
	Timezone             *string
	MonitoringEnabled    *bool
	IsPremium            *bool
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.CheckinIntervalHours == nil && u.CheckinTime == nil &&
		u.Timezone == nil && u.MonitoringEnabled == nil && u.IsPremium == nil
}

// CheckIn is an immutable confirmation event.
type CheckIn struct {
	ID        string
	UserID    string
	CheckinAt time.Time
}

// EmergencyContact is a person notified when the user becomes overdue.
type EmergencyContact struct {
	ID        string
	UserID    string
	Name      string
	Email     string
	Phone     string
	Priority  int // ascending = notified first
	CreatedAt time.Time
}

// NewContact is the input for creating an emergency contact.
// Priority 0 means "append after the existing contacts".
type NewContact struct {
	Name     string
	Email    string
	Phone    string
	Priority int
}
