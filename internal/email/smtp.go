package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPService returns an email service that delivers over SMTP.
func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendExpiryReminder(ctx context.Context, to string, daysLeft int) error {
	subject := fmt.Sprintf("Your password expires in %d day(s)", daysLeft)
	content := fmt.Sprintf(
		"Your password will expire in %d day(s). Please change it before it expires to avoid interruption.",
		daysLeft,
	)
	return s.SendCustom(ctx, to, subject, content)
}

func (s *smtpService) SendExpiredNotice(ctx context.Context, to string) error {
	return s.SendCustom(ctx, to,
		"Your password has expired",
		"Your password has expired. Please change it the next time you sign in.",
	)
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	// gomail has no context support; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
