package domain

import "time"

// Channel is the delivery medium of an alert.
type Channel string

const (
	ChannelEmail Channel = "email"
	// ChannelSMS and ChannelCall are reserved for premium tiers; nothing delivers them yet.
	ChannelSMS  Channel = "sms"
	ChannelCall Channel = "call"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelCall:
		return true
	}
	return false
}

// AlertStatus is the delivery state of an alert row.
type AlertStatus string

const (
	AlertPending AlertStatus = "pending"
	AlertSent    AlertStatus = "sent"
	AlertFailed  AlertStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s AlertStatus) Terminal() bool {
	return s == AlertSent || s == AlertFailed
}

// CanTransition allows only pending -> sent and pending -> failed.
func (s AlertStatus) CanTransition(to AlertStatus) bool {
	return s == AlertPending && to.Terminal()
}

// Alert is the durable record of one notification attempt to one contact.
type Alert struct {
	ID          string
	UserID      string
	ContactID   string
	Channel     Channel
	Status      AlertStatus
	TriggeredAt time.Time
	UpdatedAt   time.Time
}

// NewAlert is the input for creating a pending alert.
type NewAlert struct {
	UserID    string
	ContactID string
	Channel   Channel
}
