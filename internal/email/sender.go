// Package email sends the account mails: verification and password reset links.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"mediloop/internal/config"
)

var ErrNotConfigured = errors.New("email is not configured")

type Sender struct {
	cfg config.EmailConfig
	now func() time.Time
}

func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{cfg: cfg, now: time.Now}
}

// sendTimeout bounds a whole SMTP exchange when the caller sets no earlier deadline.
const sendTimeout = 30 * time.Second

func (s *Sender) Send(ctx context.Context, to, subject, text, html string) error {
	if !s.cfg.Enabled() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.buildMessage(to, subject, text, html)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	// Cancellation unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := s.deliver(conn, to, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("send mail: %w", ctxErr)
		}
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *Sender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if s.cfg.Secure {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// deliver runs one SMTP transaction on conn, upgrading plain connections
// with STARTTLS when the server offers it.
func (s *Sender) deliver(conn net.Conn, to string, msg []byte) error {
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if !s.cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return err
			}
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage renders a multipart/alternative message when both bodies are
// set and a single-part one otherwise.
func (s *Sender) buildMessage(to, subject, text, html string) ([]byte, error) {
	if strings.ContainsAny(to+subject, "\r\n") {
		return nil, errors.New("header values must not contain line breaks")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case strings.TrimSpace(html) == "":
		buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		buf.WriteString(text)
	case strings.TrimSpace(text) == "":
		buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		buf.WriteString(html)
	default:
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for _, part := range []struct{ ctype, content string }{
			{"text/plain", text},
			{"text/html", html},
		} {
			pw, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type": {part.ctype + "; charset=\"UTF-8\""},
			})
			if err != nil {
				return nil, err
			}
			if _, err := pw.Write([]byte(part.content)); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
		buf.Write(body.Bytes())
	}
	return buf.Bytes(), nil
}
