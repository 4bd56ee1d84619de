package mailer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
)

// Attachment represents an email attachment
type Attachment struct {
	Filename    string // Filename for the attachment
	ContentType string // MIME type (e.g., "text/html", "text/plain")
	Content     []byte // Raw content bytes
}

// Message is the assembled content of one report email
type Message struct {
	From        *mail.Address
	To          *mail.Address
	Subject     string
	Date        time.Time
	Body        string
	Inline      string // Extra text/plain part, used when nothing is attached
	Attachments []Attachment
}

// Build renders the message as multipart/mixed with a text/plain body part,
// an optional inline text part and base64 attachments
func (m *Message) Build() ([]byte, error) {
	var h mail.Header
	h.SetDate(m.Date)
	h.SetAddressList("From", []*mail.Address{m.From})
	h.SetAddressList("To", []*mail.Address{m.To})
	h.SetSubject(m.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	if err := writeTextPart(mw, m.Body); err != nil {
		return nil, err
	}

	if m.Inline != "" {
		if err := writeTextPart(mw, m.Inline); err != nil {
			return nil, err
		}
	}

	for _, att := range m.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		var ah mail.AttachmentHeader
		ah.SetContentType(contentType, map[string]string{"charset": "utf-8"})
		ah.SetFilename(att.Filename)
		ah.Set("Content-Transfer-Encoding", "base64")

		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", att.Filename, err)
		}
		if _, err := w.Write(att.Content); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", att.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close attachment %s: %w", att.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writeTextPart(mw *mail.Writer, text string) error {
	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("failed to create inline part: %w", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("failed to create text part: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("failed to write text part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close text part: %w", err)
	}
	return tw.Close()
}
