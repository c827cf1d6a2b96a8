package watchdog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/deadman/internal/domain"
	"github.com/ykvlv/deadman/internal/events"
	"github.com/ykvlv/deadman/internal/mail"
	"github.com/ykvlv/deadman/internal/metrics"
)

// DispatchStatus is the outcome of one dispatch result.
type DispatchStatus string

const (
	ResultSent    DispatchStatus = "sent"
	ResultFailed  DispatchStatus = "failed"
	ResultPending DispatchStatus = "pending"
	ResultSkipped DispatchStatus = "skipped"
	ResultError   DispatchStatus = "error"
)

const (
	reasonNoContact        = "no contact"
	reasonLedgerFailed     = "ledger write failed"
	reasonDeliveryDisabled = "delivery disabled"
	reasonDeliveryFailed   = "delivery failed"
	reasonRejected         = "recipient rejected"
	reasonRenderFailed     = "message render failed"
	reasonDispatchFailed   = "dispatch failed"

	fallbackUserName   = "Utente"
	defaultSendTimeout = 10 * time.Second
	finishTimeout      = 2 * time.Second
)

// DispatchResult describes what happened for one (user, contact) pair,
// or for the user as a whole when no contact was reached.
type DispatchResult struct {
	UserID       string         `json:"user_id"`
	ContactID    string         `json:"contact_id,omitempty"`
	ContactEmail string         `json:"contact_email,omitempty"`
	Status       DispatchStatus `json:"status"`
	AlertID      string         `json:"alert_id,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ContactLister is the part of the contact store the dispatcher reads.
type ContactLister interface {
	ListContacts(ctx context.Context, userID string) ([]domain.EmergencyContact, error)
}

// Ledger records alert rows and their terminal status.
type Ledger interface {
	CreateAlert(ctx context.Context, a domain.NewAlert) (domain.Alert, error)
	UpdateAlertStatus(ctx context.Context, alertID string, status domain.AlertStatus) error
}

// Dispatcher notifies every emergency contact of one overdue user.
type Dispatcher struct {
	contacts    ContactLister
	ledger      Ledger
	gateway     mail.Gateway // nil disables delivery
	events      events.Publisher
	log         *zap.Logger
	sendTimeout time.Duration
	now         func() time.Time
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithGateway enables delivery.
func WithGateway(g mail.Gateway) DispatcherOption {
	return func(d *Dispatcher) { d.gateway = g }
}

// WithEvents publishes each alert outcome.
func WithEvents(p events.Publisher) DispatcherOption {
	return func(d *Dispatcher) { d.events = p }
}

// WithSendTimeout bounds each gateway call.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func NewDispatcher(contacts ContactLister, ledger Ledger, log *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		contacts:    contacts,
		ledger:      ledger,
		events:      events.NopPublisher{},
		log:         log,
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch creates one alert per contact in priority order and attempts delivery.
// A contact failure never stops the remaining contacts; only a failed contact
// lookup is returned as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, u OverdueUser) ([]DispatchResult, error) {
	contacts, err := d.contacts.ListContacts(ctx, u.UserID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	if len(contacts) == 0 {
		d.log.Warn("overdue user has no emergency contact", zap.String("userID", u.UserID))
		res := DispatchResult{UserID: u.UserID, Status: ResultSkipped, Reason: reasonNoContact}
		metrics.DispatchResults.WithLabelValues(string(res.Status)).Inc()
		return []DispatchResult{res}, nil
	}

	name := userName(u)
	results := make([]DispatchResult, 0, len(contacts))
	for _, c := range contacts {
		res := d.notify(ctx, u, name, c)
		metrics.DispatchResults.WithLabelValues(string(res.Status)).Inc()
		d.publish(ctx, u, res)
		results = append(results, res)
	}
	return results, nil
}

func (d *Dispatcher) notify(ctx context.Context, u OverdueUser, name string, c domain.EmergencyContact) DispatchResult {
	res := DispatchResult{UserID: u.UserID, ContactID: c.ID, ContactEmail: c.Email}
	log := d.log.With(zap.String("userID", u.UserID), zap.String("contactID", c.ID))

	// The alert row exists before any delivery attempt.
	alert, err := d.ledger.CreateAlert(ctx, domain.NewAlert{
		UserID:    u.UserID,
		ContactID: c.ID,
		Channel:   domain.ChannelEmail,
	})
	if err != nil {
		log.Error("create alert failed", zap.Error(err))
		res.Status, res.Reason, res.Error = ResultError, reasonLedgerFailed, err.Error()
		return res
	}
	res.AlertID = alert.ID

	msg, err := mail.RenderAlert(mail.AlertData{
		ContactName:   c.Name,
		UserName:      name,
		HoursOverdue:  u.FloorHoursOverdue(),
		LastCheckin:   domain.FormatCheckinDate(u.LastCheckinAt, u.Timezone),
		IntervalHours: u.CheckinIntervalHours,
	})
	if err != nil {
		log.Error("render alert failed", zap.Error(err))
		res.Status, res.Reason, res.Error = ResultFailed, reasonRenderFailed, err.Error()
		d.finish(ctx, log, &res, domain.AlertFailed)
		return res
	}
	msg.To = c.Email

	if d.gateway == nil {
		res.Status, res.Reason = ResultPending, reasonDeliveryDisabled
		return res
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	start := time.Now()
	sent, err := d.gateway.Send(sendCtx, msg)
	cancel()

	switch {
	case err != nil:
		log.Warn("alert delivery failed", zap.Error(err))
		res.Status, res.Reason, res.Error = ResultFailed, reasonDeliveryFailed, err.Error()
	case !sent.Delivered(c.Email):
		log.Warn("alert recipient rejected", zap.String("recipient", c.Email))
		res.Status, res.Reason = ResultFailed, reasonRejected
	default:
		res.Status = ResultSent
	}
	metrics.ObserveDelivery(res.Status == ResultSent, start)

	status := domain.AlertFailed
	if res.Status == ResultSent {
		status = domain.AlertSent
	}
	d.finish(ctx, log, &res, status)
	return res
}

// finish moves the alert to its terminal status. The write outlives a canceled
// run, since the delivery attempt already happened. The delivery outcome in res
// stands even if the ledger update fails; the row then stays pending.
func (d *Dispatcher) finish(ctx context.Context, log *zap.Logger, res *DispatchResult, status domain.AlertStatus) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := d.ledger.UpdateAlertStatus(ctx, res.AlertID, status); err != nil {
		log.Error("update alert status failed", zap.String("alertID", res.AlertID), zap.Error(err))
		if res.Error == "" {
			res.Error = fmt.Sprintf("update alert status: %v", err)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, u OverdueUser, res DispatchResult) {
	if res.AlertID == "" {
		return
	}
	err := d.events.PublishAlert(ctx, events.AlertEvent{
		AlertID:      res.AlertID,
		UserID:       res.UserID,
		ContactID:    res.ContactID,
		Channel:      string(domain.ChannelEmail),
		Status:       string(res.Status),
		Reason:       res.Reason,
		HoursOverdue: u.HoursOverdue,
		OccurredAt:   d.now().UTC(),
	})
	if err != nil {
		d.log.Warn("publish alert event failed", zap.String("alertID", res.AlertID), zap.Error(err))
	}
}

// userName picks the name shown to contacts.
func userName(u OverdueUser) string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(u.UserID, "@"); ok && local != "" {
		return local
	}
	return fallbackUserName
}
