package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPConfig contains configuration for the digest mailer.
type SMTPConfig struct {
	// Host is the SMTP server hostname
	Host string

	// Port is the SMTP server port, typically 587 (submission with STARTTLS)
	// or 25. Implicit-TLS port 465 is not supported.
	Port int

	// Username and Password authenticate via AUTH PLAIN when the server
	// advertises AUTH. Empty Username skips authentication.
	Username string
	Password string

	// From is the envelope sender and From header address
	From string

	// Timeout bounds the connection dial and the whole SMTP session
	Timeout time.Duration
}

// SMTPMailer delivers the digest email over SMTP. Recipients vary per send
// (main versus debug lists), so SMTPMailer does not implement the Notifier
// interface directly; the email channel adapts it.
type SMTPMailer struct {
	config      SMTPConfig
	rateLimiter *RateLimiter
}

// NewSMTPMailer creates a new SMTPMailer with the specified configuration.
// A zero Timeout defaults to 30 seconds.
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &SMTPMailer{
		config:      config,
		rateLimiter: NewRateLimiter(1.0, 1), // 1 req/s, burst of 1
	}
}

// Send delivers the digest to the given recipients.
//
// It performs the following steps:
//  1. Generate unique request_id for tracing
//  2. Apply rate limiting
//  3. Build the plain-text message
//  4. Run the SMTP session with bounded retry on transient failures
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - recipients: Envelope recipients (must not be empty)
//   - digest: The run digest to deliver (must not be nil)
//
// Returns:
//   - error: Non-nil if delivery failed after all retry attempts
func (m *SMTPMailer) Send(ctx context.Context, recipients []string, digest *Digest) error {
	if m.config.Host == "" || m.config.From == "" {
		return fmt.Errorf("smtp mailer not configured (host %q, from %q)", m.config.Host, m.config.From)
	}
	if len(recipients) == 0 {
		return errors.New("no recipients")
	}

	requestID := uuid.New().String()

	slog.Info("Starting digest mail delivery",
		slog.String("request_id", requestID),
		slog.Int("recipients", len(recipients)),
		slog.Int("new_count", digest.NewCount),
		slog.Bool("debug", len(digest.RunLog) > 0))

	if err := m.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	msg := m.buildMessage(recipients, digest)
	return m.sendWithRetry(ctx, requestID, recipients, msg)
}

// buildMessage renders the RFC 5322 message: headers plus the plain-text
// digest body. Non-ASCII subjects are Q-encoded.
func (m *SMTPMailer) buildMessage(recipients []string, digest *Digest) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", digest.Subject()))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(digest.PlainText())

	return []byte(b.String())
}

// sendWithRetry runs the SMTP session with the same bounded-retry shape as
// the webhook notifiers: two attempts, transient failures only.
func (m *SMTPMailer) sendWithRetry(ctx context.Context, requestID string, recipients []string, msg []byte) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := m.session(ctx, recipients, msg)

		if err == nil {
			slog.Info("Digest mail delivered",
				slog.String("request_id", requestID),
				slog.Int("recipients", len(recipients)),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if !isTransientSMTP(err) {
			slog.Error("Digest mail failed with permanent error",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("SMTP session failed, retrying",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error("Digest mail failed after all retries",
		slog.String("request_id", requestID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))

	return fmt.Errorf("smtp delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

// session runs one complete SMTP dialogue: dial, EHLO, STARTTLS when the
// server offers it, optional AUTH, envelope, data, quit.
func (m *SMTPMailer) session(ctx context.Context, recipients []string, msg []byte) error {
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))

	dialer := &net.Dialer{Timeout: m.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	// セッション全体に締め切りを掛ける。ctx の期限が先ならそちらを使う
	deadline := time.Now().Add(m.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	// STARTTLS を広告するサーバーとは暗号化してから先へ進む
	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: m.config.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if m.config.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("mail from %s: %w", m.config.From, err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}

// isTransientSMTP reports whether an SMTP failure is worth retrying.
// SMTP inverts the HTTP convention: 4xx replies are transient, 5xx permanent.
// Network and handshake errors are transient.
func isTransientSMTP(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	return true
}
