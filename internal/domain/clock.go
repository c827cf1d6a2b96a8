package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Status is the compliance state of a profile.
type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusPaused   Status = "PAUSED"
)

// warningRatio is the share of the interval after which a profile is WARNING.
const warningRatio = 0.75

// ResetMode selects how elapsed days are counted.
type ResetMode string

const (
	// ResetMidnight counts whole local calendar days; it ticks exactly at midnight.
	ResetMidnight ResetMode = "midnight"
	// ResetMinutes counts continuous fractional days (minutes / 1440).
	ResetMinutes ResetMode = "minutes"
)

// ParseResetMode accepts "midnight" or "minutes".
func ParseResetMode(s string) (ResetMode, error) {
	switch ResetMode(strings.ToLower(strings.TrimSpace(s))) {
	case ResetMidnight:
		return ResetMidnight, nil
	case ResetMinutes:
		return ResetMinutes, nil
	}
	return "", fmt.Errorf("unknown reset mode %q", s)
}

// HoursUntilNext returns the hours left before the next check-in is due.
// A profile that never checked in is due immediately.
func HoursUntilNext(last *time.Time, intervalHours float64, now time.Time) float64 {
	if last == nil {
		return 0
	}
	next := last.Add(hoursToDuration(intervalHours))
	return math.Max(0, next.Sub(now).Hours())
}

// DaysWithoutCheckin counts days since the last check-in, or since createdAt
// when there is none. loc is only used by ResetMidnight.
func DaysWithoutCheckin(last *time.Time, createdAt time.Time, mode ResetMode, now time.Time, loc *time.Location) float64 {
	from := createdAt
	if last != nil {
		from = *last
	}
	if mode == ResetMinutes {
		mins := now.Sub(from).Minutes()
		return math.Max(0, mins/(60*24))
	}
	return float64(calendarDays(from, now, loc))
}

// Classify maps elapsed days against the interval. Both thresholds are inclusive.
func Classify(daysWithout, intervalHours float64) Status {
	intervalDays := intervalHours / 24
	switch {
	case daysWithout >= intervalDays:
		return StatusCritical
	case daysWithout >= warningRatio*intervalDays:
		return StatusWarning
	default:
		return StatusOK
	}
}

// Evaluate computes the status of p at now. Paused profiles are always PAUSED.
func Evaluate(p *Profile, mode ResetMode, now time.Time) Status {
	if !p.MonitoringEnabled {
		return StatusPaused
	}
	days := DaysWithoutCheckin(p.LastCheckinAt, p.CreatedAt, mode, now, p.Location())
	return Classify(days, p.CheckinIntervalHours)
}

// HoursElapsed returns hours since the last check-in, or since creation.
func HoursElapsed(p *Profile, now time.Time) float64 {
	from := p.CreatedAt
	if p.LastCheckinAt != nil {
		from = *p.LastCheckinAt
	}
	return now.Sub(from).Hours()
}

// CanCheckIn reports whether a new check-in is accepted at now.
// Midnight mode allows one per local calendar day; minutes mode waits resetAfter.
func CanCheckIn(last *time.Time, mode ResetMode, resetAfter time.Duration, now time.Time, loc *time.Location) bool {
	if last == nil {
		return true
	}
	if mode == ResetMinutes {
		return now.Sub(*last) >= resetAfter
	}
	return calendarDays(*last, now, loc) >= 1
}

// calendarDays is the whole-day difference between the local dates of from and to.
func calendarDays(from, to time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	f, t := from.In(loc), to.In(loc)
	// Compare dates on a fixed-offset axis so DST shifts never produce 23h/25h days.
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int(td.Sub(fd).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
