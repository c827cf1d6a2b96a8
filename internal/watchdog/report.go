package watchdog

import "time"

const (
	messageCompleted = "run completed"
	messageNoOverdue = "no overdue users"
)

// Report is the summary of one batch run.
type Report struct {
	Message           string           `json:"message"`
	ExpiredUsersCount int              `json:"expired_users_count"`
	AlertsCreated     int              `json:"alerts_created"`
	Results           []DispatchResult `json:"results"`
	Timestamp         time.Time        `json:"timestamp"`
}

// FailureReport is returned when a run aborts before dispatching.
type FailureReport struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFailureReport wraps a fatal run error.
func NewFailureReport(err error, now time.Time) FailureReport {
	return FailureReport{Error: err.Error(), Timestamp: now.UTC()}
}

// CountByStatus tallies results by status.
func (r Report) CountByStatus() map[DispatchStatus]int {
	counts := make(map[DispatchStatus]int, 5)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}
