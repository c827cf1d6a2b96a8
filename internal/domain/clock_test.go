package domain

import (
	"math"
	"testing"
	"time"
)

// helper: build a time in given tz
func mustLocal(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func ptr(t time.Time) *time.Time { return &t }

func TestHoursUntilNext_JustCheckedIn(t *testing.T) {
	now := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	for _, interval := range []float64{0.083, 1, 24, 48, 72.5} {
		got := HoursUntilNext(ptr(now), interval, now)
		if math.Abs(got-interval) > 1e-6 {
			t.Fatalf("interval %v: want %v, got %v", interval, interval, got)
		}
		p := &Profile{LastCheckinAt: ptr(now), CheckinIntervalHours: interval, MonitoringEnabled: true, CreatedAt: now}
		for _, mode := range []ResetMode{ResetMidnight, ResetMinutes} {
			if s := Evaluate(p, mode, now); s != StatusOK {
				t.Fatalf("interval %v mode %s: want OK, got %s", interval, mode, s)
			}
		}
	}
}

func TestHoursUntilNext_NeverCheckedIn(t *testing.T) {
	if got := HoursUntilNext(nil, 24, time.Now()); got != 0 {
		t.Fatalf("want 0, got %v", got)
	}
}

func TestHoursUntilNext_ClampsToZero(t *testing.T) {
	now := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Hour)
	if got := HoursUntilNext(&last, 24, now); got != 0 {
		t.Fatalf("want 0, got %v", got)
	}
	last = now.Add(-18 * time.Hour)
	if got := HoursUntilNext(&last, 24, now); math.Abs(got-6) > 1e-9 {
		t.Fatalf("want 6, got %v", got)
	}
}

func TestDaysWithoutCheckin_MidnightTicksAtMidnight(t *testing.T) {
	const tz = "Europe/Rome"
	last := mustLocal(t, tz, 2025, time.May, 5, 23, 59)
	now := mustLocal(t, tz, 2025, time.May, 6, 0, 1)
	loc, _ := time.LoadLocation(tz)

	got := DaysWithoutCheckin(&last, last, ResetMidnight, now, loc)
	if got != 1 {
		t.Fatalf("want 1 day, got %v", got)
	}
	// Same instant evaluated in UTC is still the same calendar day there.
	if got := DaysWithoutCheckin(&last, last, ResetMidnight, now, time.UTC); got != 0 {
		t.Fatalf("utc: want 0 days, got %v", got)
	}
}

func TestDaysWithoutCheckin_MidnightAcrossDST(t *testing.T) {
	const tz = "Europe/Rome"
	loc, _ := time.LoadLocation(tz)
	// 2025-03-30 is a 23h day in Rome.
	last := mustLocal(t, tz, 2025, time.March, 29, 12, 0)
	now := mustLocal(t, tz, 2025, time.March, 31, 0, 30)
	if got := DaysWithoutCheckin(&last, last, ResetMidnight, now, loc); got != 2 {
		t.Fatalf("want 2 days, got %v", got)
	}
}

func TestDaysWithoutCheckin_MidnightFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.January, 4, 7, 0, 0, 0, time.UTC)
	if got := DaysWithoutCheckin(nil, created, ResetMidnight, now, time.UTC); got != 3 {
		t.Fatalf("want 3, got %v", got)
	}
}

func TestDaysWithoutCheckin_Minutes(t *testing.T) {
	last := time.Date(2025, time.January, 1, 23, 0, 0, 0, time.UTC)
	now := last.Add(36 * time.Hour)
	got := DaysWithoutCheckin(&last, last, ResetMinutes, now, time.UTC)
	if math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("want 1.5, got %v", got)
	}
	if got := DaysWithoutCheckin(&last, last, ResetMinutes, last, time.UTC); got != 0 {
		t.Fatalf("want 0, got %v", got)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		days     float64
		interval float64
		want     Status
	}{
		{0, 48, StatusOK},
		{1.49, 48, StatusOK},
		{36.0 / 24, 48, StatusWarning},
		{1.99, 48, StatusWarning},
		{48.0 / 24, 48, StatusCritical},
		{3, 48, StatusCritical},
		{1, 24, StatusCritical},
		{0, 0.083, StatusOK},
	}
	for _, c := range cases {
		if got := Classify(c.days, c.interval); got != c.want {
			t.Fatalf("Classify(%v, %v): want %s, got %s", c.days, c.interval, c.want, got)
		}
	}
}

func TestEvaluate_ZeroElapsedIsClassified(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	p := &Profile{LastCheckinAt: ptr(now), CheckinIntervalHours: 24, MonitoringEnabled: true, CreatedAt: now}
	if s := Evaluate(p, ResetMidnight, now); s != StatusOK {
		t.Fatalf("want OK, got %s", s)
	}
	// Zero days against a zero-length threshold is still a real comparison.
	if s := Classify(0, 0); s != StatusCritical {
		t.Fatalf("want CRITICAL for a zero threshold, got %s", s)
	}
}

func TestEvaluate_PausedOverridesEverything(t *testing.T) {
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-30 * 24 * time.Hour)
	p := &Profile{LastCheckinAt: &last, CheckinIntervalHours: 24, MonitoringEnabled: false, CreatedAt: last}
	for _, mode := range []ResetMode{ResetMidnight, ResetMinutes} {
		if s := Evaluate(p, mode, now); s != StatusPaused {
			t.Fatalf("mode %s: want PAUSED, got %s", mode, s)
		}
	}
}

func TestCanCheckIn_MinutesWindow(t *testing.T) {
	last := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	window := 2 * time.Minute
	if CanCheckIn(&last, ResetMinutes, window, last.Add(90*time.Second), time.UTC) {
		t.Fatalf("90s into a 2m window must not allow check-in")
	}
	if !CanCheckIn(&last, ResetMinutes, window, last.Add(121*time.Second), time.UTC) {
		t.Fatalf("121s into a 2m window must allow check-in")
	}
}

func TestCanCheckIn_Midnight(t *testing.T) {
	const tz = "Europe/Rome"
	loc, _ := time.LoadLocation(tz)
	last := mustLocal(t, tz, 2025, time.May, 5, 23, 59)
	if CanCheckIn(&last, ResetMidnight, 0, mustLocal(t, tz, 2025, time.May, 5, 23, 59).Add(30*time.Second), loc) {
		t.Fatalf("same day check-in must be refused")
	}
	if !CanCheckIn(&last, ResetMidnight, 0, mustLocal(t, tz, 2025, time.May, 6, 0, 1), loc) {
		t.Fatalf("check-in after midnight must be allowed")
	}
	if !CanCheckIn(nil, ResetMidnight, 0, last, loc) {
		t.Fatalf("first check-in must be allowed")
	}
}

func TestParseResetMode(t *testing.T) {
	if m, err := ParseResetMode(" Minutes "); err != nil || m != ResetMinutes {
		t.Fatalf("want minutes, got %q %v", m, err)
	}
	if _, err := ParseResetMode("hourly"); err == nil {
		t.Fatalf("want error for unknown mode")
	}
}
