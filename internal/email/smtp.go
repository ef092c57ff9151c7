// Package email delivers report copies over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"lead_engine_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers the daily summary via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	to        string
}

// NewSMTPSender returns nil when SMTP or the summary recipient is not configured.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	if !cfg.IsSMTPEnabled() || cfg.GetSummaryEmailTo() == "" {
		return nil
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		to:        cfg.GetSummaryEmailTo(),
	}
}

// SendSummary renders the report lines into the summary template and sends
// it with a plain-text alternative.
func (s *SMTPSender) SendSummary(ctx context.Context, subject, body string) error {
	msg, err := s.buildSummaryMessage(subject, body)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildSummaryMessage(subject, body string) (*gomail.Msg, error) {
	lines := strings.Split(body, "\n")
	heading := subject
	if len(lines) > 0 {
		heading = lines[0]
		lines = lines[1:]
	}

	content, err := renderEmailTemplate("summary.html", summaryEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: heading,
		},
		Lines: lines,
	})
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	for _, to := range strings.Split(s.to, ",") {
		if to = strings.TrimSpace(to); to == "" {
			continue
		}
		if err := msg.AddTo(to); err != nil {
			return nil, fmt.Errorf("smtp to: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	msg.AddAlternativeString(gomail.TypeTextHTML, content)
	return msg, nil
}
