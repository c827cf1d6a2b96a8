package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	netmail "net/mail"
	"net/smtp"
	"net/textproto"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	FromAddress string
	FromName    string
	Timeout     time.Duration
}

// SMTPSender implements Gateway over a plain SMTP session with optional STARTTLS.
type SMTPSender struct {
	cfg  SMTPConfig
	auth smtp.Auth
	log  *zap.Logger
}

// NewSMTPSender validates cfg. Missing settings yield an error wrapping ErrNotConfigured.
func NewSMTPSender(cfg SMTPConfig, log *zap.Logger) (*SMTPSender, error) {
	var missing []string
	for name, v := range map[string]string{
		"host":         cfg.Host,
		"port":         cfg.Port,
		"username":     cfg.Username,
		"password":     cfg.Password,
		"from_address": cfg.FromAddress,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.FromName == "" {
		cfg.FromName = "SILEME"
	}

	log.Info("smtp gateway initialized",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("fromAddress", cfg.FromAddress),
	)
	return &SMTPSender{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		log:  log,
	}, nil
}

// Send delivers msg within the configured timeout or the context deadline, whichever is sooner.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	var res SendResult

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	from := s.cfg.FromAddress
	if msg.From != "" {
		from = msg.From
	}
	body, err := s.compose(from, msg)
	if err != nil {
		return res, fmt.Errorf("compose message: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return res, fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return res, fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return res, fmt.Errorf("starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(s.auth); err != nil {
			return res, fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return res, fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		var perr *textproto.Error
		if asProtocolError(err, &perr) {
			res.Rejected = append(res.Rejected, msg.To)
			s.log.Warn("smtp recipient rejected",
				zap.String("recipient", msg.To),
				zap.Int("code", perr.Code),
			)
			_ = c.Reset()
			_ = c.Quit()
			return res, nil
		}
		return res, fmt.Errorf("rcpt to: %w", err)
	}
	res.Accepted = append(res.Accepted, msg.To)

	w, err := c.Data()
	if err != nil {
		return SendResult{}, fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return SendResult{}, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return SendResult{}, fmt.Errorf("finish data: %w", err)
	}
	_ = c.Quit()

	s.log.Debug("email sent",
		zap.String("recipient", msg.To),
		zap.String("smtpHost", s.cfg.Host),
	)
	return res, nil
}

// compose renders a multipart/alternative message.
func (s *SMTPSender) compose(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fromHeader := (&netmail.Address{Name: s.cfg.FromName, Address: from}).String()
	headers := []string{
		"From: " + fromHeader,
		"To: " + msg.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject),
		"Date: " + time.Now().Format(time.RFC1123Z),
		"Message-ID: <" + uuid.NewString() + "@" + s.cfg.Host + ">",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + mw.Boundary(),
	}
	var out bytes.Buffer
	out.WriteString(strings.Join(headers, "\r\n"))
	out.WriteString("\r\n\r\n")

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		if part.content == "" {
			continue
		}
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

// asProtocolError matches permanent (5xx) SMTP replies.
func asProtocolError(err error, target **textproto.Error) bool {
	if !errors.As(err, target) {
		return false
	}
	return (*target).Code >= 500
}
