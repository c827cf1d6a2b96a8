package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyInterval   = errors.New("empty interval")
	ErrInvalidInterval = errors.New("invalid interval")
)

var (
	hoursRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*h`)
	minutesRe = regexp.MustCompile(`(?i)(\d+)\s*m`)
)

// maxIntervalHours caps the interval at one month.
const maxIntervalHours = 24 * 31

// ParseIntervalHours parses "24", "12h", "1h30m", "5m" or "0.5" into hours.
// A bare number means hours.
func ParseIntervalHours(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, ErrEmptyInterval
	}
	if h, err := strconv.ParseFloat(s, 64); err == nil {
		return h, ValidateInterval(h)
	}

	var total float64
	matched := false
	if mh := hoursRe.FindStringSubmatch(s); len(mh) == 2 {
		h, _ := strconv.ParseFloat(mh[1], 64)
		total += h
		matched = true
	}
	if mm := minutesRe.FindStringSubmatch(s); len(mm) == 2 {
		m, _ := strconv.Atoi(mm[1])
		total += float64(m) / 60
		matched = true
	}
	if !matched {
		return 0, fmt.Errorf("%w: %s", ErrInvalidInterval, s)
	}
	return total, ValidateInterval(total)
}

// ValidateInterval enforces checkin_interval_hours > 0.
func ValidateInterval(h float64) error {
	if !(h > 0) {
		return Invalid("checkin_interval_hours", "interval must be greater than zero")
	}
	if h > maxIntervalHours {
		return Invalid("checkin_interval_hours", fmt.Sprintf("interval must be at most %d hours", maxIntervalHours))
	}
	return nil
}

// ParseCheckinTime validates an "HH:MM" preferred check-in time and normalizes it.
func ParseCheckinTime(s string) (string, error) {
	mins, err := parseHHMM(s)
	if err != nil {
		return "", Invalid("checkin_time", err.Error())
	}
	return FormatMinutes(mins), nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", Invalid("timezone", "timezone is required")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", &ValidationError{Field: "timezone", Message: "unknown timezone " + tz, Err: err}
	}
	return loc.String(), nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ValidateContact trims and checks a new emergency contact.
func ValidateContact(c NewContact) (NewContact, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return c, Invalid("name", "name is required")
	}
	if c.Email == "" {
		return c, Invalid("email", "email is required")
	}
	if !strings.Contains(c.Email, "@") {
		return c, Invalid("email", "email address is not valid")
	}
	if c.Priority < 0 {
		return c, Invalid("priority", "priority must be positive")
	}
	return c, nil
}

// FormatCheckinDate renders t as DD/MM/YYYY HH:MM in tz, or "Mai" when t is nil.
func FormatCheckinDate(t *time.Time, tz string) string {
	if t == nil {
		return "Mai"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return t.In(loc).Format("02/01/2006 15:04")
}
