// Package notify sends user-facing notifications by email.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/bubtconnect/backend/src/workflow"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers one HTML email. Errors are returned to the caller so a
// workflow step can be retried.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
	// Timeout bounds one whole delivery, dial to QUIT.
	Timeout time.Duration
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &SMTPMailer{cfg: cfg}
	if _, err := s.client(); err != nil {
		return nil, err
	}
	if _, err := newMessage(cfg.Sender, Mail{To: cfg.Sender}); err != nil {
		return nil, err
	}
	return s, nil
}

// client builds a fresh SMTP client. One is built per delivery so concurrent
// workers never share a connection.
func (s *SMTPMailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dialWithDeadline),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", s.cfg.Host, err)
	}
	return c, nil
}

func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.To == "" {
		return workflow.Permanent(fmt.Errorf("mail %q has no recipient", m.Subject))
	}
	msg, err := newMessage(s.cfg.Sender, m)
	if err != nil {
		return workflow.Permanent(err)
	}
	c, err := s.client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	slog.Info("📧 Mail sent", "to", m.To, "subject", m.Subject)
	return nil
}

// newMessage rejects malformed addresses and leaves header encoding to
// go-mail.
func newMessage(from string, m Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("mail recipient %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.Body)
	return msg, nil
}

// dialWithDeadline carries the context deadline onto the connection so a
// relay that stops answering mid-session fails instead of hanging.
func dialWithDeadline(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// LogMailer only logs mail. It stands in for SMTP in local runs.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Mail) error {
	slog.Info("📧 Mail (not sent, SMTP not configured)", "to", m.To, "subject", m.Subject)
	return nil
}
