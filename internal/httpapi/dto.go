package httpapi

import (
	"time"

	"github.com/ykvlv/deadman/internal/domain"
)

type profileResponse struct {
	UserID               string     `json:"user_id"`
	DisplayName          string     `json:"display_name"`
	LastCheckinAt        *time.Time `json:"last_checkin_at"`
	CheckinIntervalHours float64    `json:"checkin_interval_hours"`
	CheckinTime          string     `json:"checkin_time"`
	Timezone             string     `json:"timezone"`
	MonitoringEnabled    bool       `json:"monitoring_enabled"`
	IsPremium            bool       `json:"is_premium"`
	CreatedAt            time.Time  `json:"created_at"`
}

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		UserID:               p.UserID,
		DisplayName:          p.DisplayName,
		LastCheckinAt:        p.LastCheckinAt,
		CheckinIntervalHours: p.CheckinIntervalHours,
		CheckinTime:          p.CheckinTime,
		Timezone:             p.Timezone,
		MonitoringEnabled:    p.MonitoringEnabled,
		IsPremium:            p.IsPremium,
		CreatedAt:            p.CreatedAt,
	}
}

// settingsRequest is a partial update; absent fields are left unchanged.
// checkin_interval accepts "24", "12h", "90m" or "1h30m".
type settingsRequest struct {
	DisplayName          *string  `json:"display_name"`
	CheckinIntervalHours *float64 `json:"checkin_interval_hours"`
	CheckinInterval      *string  `json:"checkin_interval"`
	CheckinTime          *string  `json:"checkin_time"`
	Timezone             *string  `json:"timezone"`
	MonitoringEnabled    *bool    `json:"monitoring_enabled"`
	IsPremium            *bool    `json:"is_premium"`
}

func (r settingsRequest) toUpdate() (domain.ProfileUpdate, error) {
	upd := domain.ProfileUpdate{
		DisplayName:          r.DisplayName,
		CheckinIntervalHours: r.CheckinIntervalHours,
		CheckinTime:          r.CheckinTime,
		Timezone:             r.Timezone,
		MonitoringEnabled:    r.MonitoringEnabled,
		IsPremium:            r.IsPremium,
	}
	if r.CheckinInterval != nil {
		h, err := domain.ParseIntervalHours(*r.CheckinInterval)
		if err != nil {
			if !domain.IsValidation(err) {
				return upd, &domain.ValidationError{Field: "checkin_interval", Message: err.Error(), Err: err}
			}
			return upd, err
		}
		upd.CheckinIntervalHours = &h
	}
	return upd, nil
}

type contactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Priority int    `json:"priority"`
}

type contactResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

func toContactResponses(cs []domain.EmergencyContact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContactResponse(c))
	}
	return out
}

func toContactResponse(c domain.EmergencyContact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Priority:  c.Priority,
		CreatedAt: c.CreatedAt,
	}
}

type checkinResponse struct {
	ID        string    `json:"id"`
	CheckinAt time.Time `json:"checkin_at"`
}

func toCheckinResponses(cs []domain.CheckIn) []checkinResponse {
	out := make([]checkinResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, checkinResponse{ID: c.ID, CheckinAt: c.CheckinAt})
	}
	return out
}

type alertResponse struct {
	ID          string    `json:"id"`
	ContactID   string    `json:"contact_id"`
	Channel     string    `json:"channel"`
	Status      string    `json:"status"`
	TriggeredAt time.Time `json:"triggered_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAlertResponses(as []domain.Alert) []alertResponse {
	out := make([]alertResponse, 0, len(as))
	for _, a := range as {
		out = append(out, alertResponse{
			ID:          a.ID,
			ContactID:   a.ContactID,
			Channel:     string(a.Channel),
			Status:      string(a.Status),
			TriggeredAt: a.TriggeredAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return out
}
