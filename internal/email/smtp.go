package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

const dialTimeout = 10 * time.Second

// SMTPTransport submits mail over implicit TLS (SMTPS, usually port 465).
type SMTPTransport struct {
	host     string
	port     int
	user     string
	password string

	// dial opens the connection; replaced in tests with a plain TCP dialer.
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

func NewSMTPTransport(host string, port int, user, password string) *SMTPTransport {
	t := &SMTPTransport{host: host, port: port, user: user, password: password}
	t.dial = t.dialTLS
	return t
}

func (t *SMTPTransport) dialTLS(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config: &tls.Config{
			ServerName: t.host,
			MinVersion: tls.VersionTLS12,
		},
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

func (t *SMTPTransport) Send(ctx context.Context, from string, msg Message) error {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	conn, err := t.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer func() { _ = client.Close() }()

	if t.user != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", t.user, t.password, t.host)); err != nil {
				return fmt.Errorf("SMTP authentication failed: %w", err)
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", classifyEnvelope(err))
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", errors.Join(ErrNoRecipient, err))
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(buildMessage(from, msg, time.Now())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP connection: %w", err)
	}
	return nil
}

// classifyEnvelope marks envelope replies that point at a bad address.
func classifyEnvelope(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 501, 550, 551, 553:
			return errors.Join(ErrNoRecipient, err)
		}
	}
	return err
}

func buildMessage(from string, msg Message, now time.Time) []byte {
	headers := [][2]string{
		{"From", from},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
		{"Content-Transfer-Encoding", "8bit"},
	}

	var buf bytes.Buffer
	for _, h := range headers {
		buf.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes()
}
