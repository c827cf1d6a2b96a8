package mail

import (
	"context"
	"errors"
)

// ErrNotConfigured means the transport lacks credentials; delivery is disabled, not failed.
var ErrNotConfigured = errors.New("mail gateway not configured")

// Message is one outgoing e-mail with a plain text body and an HTML alternative.
type Message struct {
	From    string // optional override of the configured sender address
	To      string
	Subject string
	Text    string
	HTML    string
}

// SendResult lists the recipients the server accepted and rejected.
type SendResult struct {
	Accepted []string
	Rejected []string
}

// Delivered reports whether addr was accepted by the server.
func (r SendResult) Delivered(addr string) bool {
	for _, a := range r.Accepted {
		if a == addr {
			return true
		}
	}
	return false
}

// Gateway delivers e-mail.
type Gateway interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}
