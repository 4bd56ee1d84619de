// -----------------------------------------------------------------------
// Mailer Service - report email delivery over one SMTP session per send
// -----------------------------------------------------------------------

package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
)

// ErrInvalidRecipient is returned when the recipient address fails validation
var ErrInvalidRecipient = errors.New("invalid recipient address")

const (
	// HTMLAttachmentName is the file name the HTML report is attached as
	HTMLAttachmentName = "portfolio_report.html"
	// TextAttachmentName is the file name the text report is attached as
	TextAttachmentName = "portfolio_report.txt"
	// inlineReportMarker heads the report text when it is sent in the body
	inlineReportMarker = "=== PORTFOLIO REPORT ==="
)

// Service sends report emails
type Service struct {
	transport Transport
	sender    *mail.Address
	logger    arbor.ILogger
	validate  *validator.Validate
	now       func() time.Time
}

var _ interfaces.NotificationDispatcher = (*Service)(nil)

// NewService creates a new mailer service sending as "fromName <from>"
func NewService(transport Transport, from, fromName string, logger arbor.ILogger) *Service {
	return &Service{
		transport: transport,
		sender:    &mail.Address{Name: fromName, Address: from},
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// NormalizeRecipient validates an address and returns it trimmed with a lowercase domain
func (s *Service) NormalizeRecipient(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if err := s.validate.Var(addr, "required,email"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, addr)
	}

	return models.CanonicalEmail(addr), nil
}

// Send delivers the report email. Present attachment paths are attached; when no
// path is supplied at all the report text goes inline. A nil return means the
// transport accepted the message.
func (s *Service) Send(ctx context.Context, recipient string, bodyText string, attachments interfaces.Attachments) error {
	to, err := s.NormalizeRecipient(recipient)
	if err != nil {
		s.logger.Warn().Str("recipient", recipient).Msg("Invalid email address")
		return err
	}

	now := s.now()
	msg := &Message{
		From:    s.sender,
		To:      &mail.Address{Address: to},
		Subject: Subject(now),
		Date:    now,
		Body:    Greeting(now),
	}

	if attachments.HTMLPath != "" {
		if att, ok := s.readAttachment(attachments.HTMLPath, HTMLAttachmentName, "text/html"); ok {
			msg.Attachments = append(msg.Attachments, att)
		}
	}
	if attachments.TextPath != "" {
		if att, ok := s.readAttachment(attachments.TextPath, TextAttachmentName, "text/plain"); ok {
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	// Inline only when no path was supplied, not when supplied files were unreadable
	if attachments.HTMLPath == "" && attachments.TextPath == "" && bodyText != "" {
		msg.Inline = "\n\n" + inlineReportMarker + "\n" + bodyText
	}

	raw, err := msg.Build()
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	if err := s.transport.Send(ctx, s.sender.Address, []string{to}, raw); err != nil {
		s.logger.Error().Err(err).Str("recipient", to).Msg("Failed to send report email")
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.logger.Info().
		Str("recipient", to).
		Int("attachments", len(msg.Attachments)).
		Bool("inline", msg.Inline != "").
		Msg("Report email sent")

	return nil
}

func (s *Service) readAttachment(path, name, contentType string) (Attachment, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Str("attachment", name).Msg("Could not attach file")
		return Attachment{}, false
	}
	return Attachment{Filename: name, ContentType: contentType, Content: data}, true
}

// Subject is "Daily Portfolio Report - January 02, 2006"
func Subject(t time.Time) string {
	return "Daily Portfolio Report - " + t.Format("January 02, 2006")
}

// Greeting is the fixed plain-text body of every report email
func Greeting(t time.Time) string {
	return `
Dear Investor,

Please find your daily portfolio report attached. This comprehensive analysis includes:

- Current portfolio performance
- Individual stock analysis
- Profit/Loss breakdown
- Market insights and recommendations

Report generated on: ` + t.Format("2006-01-02 15:04:05") + `

Best regards,
Stock Analysis Report Engine

---
This is an automated report. Please do not reply to this email.
`
}
