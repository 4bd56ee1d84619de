package mailer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// Transport delivers one raw RFC 5322 message per call over a fresh session
type Transport interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// SMTPConfig holds the connection settings for SMTPTransport
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ImplicitTLS bool // Connect with TLS (port 465) instead of upgrading with STARTTLS
	DialTimeout time.Duration
	RootCAs     *x509.CertPool // nil uses the system roots
}

// SMTPTransport sends mail over an authenticated TLS session.
// Every call dials, upgrades, authenticates, sends and quits; nothing is pooled.
type SMTPTransport struct {
	config SMTPConfig
}

// NewSMTPTransport creates an SMTP transport
func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	if config.DialTimeout <= 0 {
		config.DialTimeout = 30 * time.Second
	}
	return &SMTPTransport{config: config}
}

// Send performs one full SMTP session. There is no retry.
func (t *SMTPTransport) Send(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
	tlsConfig := &tls.Config{
		ServerName: t.config.Host,
		MinVersion: tls.VersionTLS12,
		RootCAs:    t.config.RootCAs,
	}

	dialer := &net.Dialer{Timeout: t.config.DialTimeout}
	var conn net.Conn
	var err error
	if t.config.ImplicitTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	// The session must finish within the caller's deadline
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if !t.config.ImplicitTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	auth := smtp.PlainAuth("", t.config.Username, t.config.Password, t.config.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}

	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set mail recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
