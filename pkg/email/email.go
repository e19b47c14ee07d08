package email

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// Message is a rendered report addressed to recipients.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPSender creates a sender that dials the SMTP server for every message.
func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return errors.New("no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type dryRunSender struct {
	dir string
	now func() time.Time
}

// NewDryRunSender writes each message to dir instead of sending it.
func NewDryRunSender(dir string) Sender {
	return &dryRunSender{dir: dir, now: time.Now}
}

func (s *dryRunSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dry-run directory: %w", err)
	}

	slug := strings.Trim(unsafeFileChars.ReplaceAllString(msg.Subject, "_"), "_")
	base := filepath.Join(s.dir, fmt.Sprintf("%s_%s", s.now().Format("20060102_150405"), slug))

	header := fmt.Sprintf("<!-- To: %s\n     Subject: %s -->\n", strings.Join(msg.To, ", "), msg.Subject)
	if err := os.WriteFile(base+".html", []byte(header+msg.HTML), 0o644); err != nil {
		return fmt.Errorf("failed to write dry-run html: %w", err)
	}
	if msg.Text != "" {
		if err := os.WriteFile(base+".txt", []byte(msg.Text), 0o644); err != nil {
			return fmt.Errorf("failed to write dry-run text: %w", err)
		}
	}
	return nil
}
