// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned by Send when no SMTP host is set.
var ErrNotConfigured = errors.New("mailer: smtp host not configured")

// Sender delivers one email. *Mailer is the production implementation;
// tests substitute their own.
type Sender interface {
	Send(email Email) error
}

var _ Sender = (*Mailer)(nil)

// Config holds the configuration for creating a Mailer.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Email is one outgoing message. HTMLBody is optional; when set the message
// is multipart/alternative with TextBody first.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string

	// UnsubscribeURL, when set, is sent as List-Unsubscribe so mail
	// clients can offer their own unsubscribe button.
	UnsubscribeURL string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends emails via SMTP.
type Mailer struct {
	cfg  Config
	send sendFunc
	now  func() time.Time
	log  *zap.Logger
}

// New creates a Mailer. A blank Host leaves it unconfigured.
func New(cfg Config, log *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now, log: log}
}

// FromName returns the configured sender display name.
func (m *Mailer) FromName() string {
	return m.cfg.FromName
}

// Configured reports whether an SMTP host is set.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != ""
}

// Send delivers email through the configured SMTP server.
func (m *Mailer) Send(email Email) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	msg, err := m.buildMessage(email)
	if err != nil {
		return fmt.Errorf("build email: %w", err)
	}

	var auth smtp.Auth
	if m.cfg.User != "" && m.cfg.Pass != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	if err := m.send(addr, auth, m.cfg.From, []string{email.To}, msg); err != nil {
		m.log.Error("failed to send email",
			zap.String("to", email.To),
			zap.String("subject", email.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Debug("email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject))
	return nil
}

// buildMessage renders the RFC 5322 message: headers, then a quoted-printable
// text body or a multipart/alternative text+HTML body.
func (m *Mailer) buildMessage(email Email) ([]byte, error) {
	from := (&mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}).String()

	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", email.To)
	header("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	if email.UnsubscribeURL != "" {
		header("List-Unsubscribe", "<"+email.UnsubscribeURL+">")
	}

	if email.HTMLBody == "" {
		header("Content-Type", "text/plain; charset=UTF-8")
		header("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQP(&buf, email.TextBody); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", "multipart/alternative; boundary="+strconv.Quote(mw.Boundary()))
	buf.WriteString("\r\n")

	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", email.TextBody},
		{"text/html; charset=UTF-8", email.HTMLBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeQP(w, part.body); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeQP(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}
