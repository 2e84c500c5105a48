package notifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailNotifier sends messages through the Gmail API as the authenticated
// sender ("me").
type GmailNotifier struct {
	svc    *gmail.Service
	sender string
}

// NewGmailNotifier creates a notifier. sender becomes the From header; the
// credentials in opts must be allowed to send as that address.
func NewGmailNotifier(ctx context.Context, sender string, opts ...option.ClientOption) (*GmailNotifier, error) {
	opts = append([]option.ClientOption{option.WithScopes(gmail.GmailSendScope)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGmailNotifier: creating service: %w", err)
	}
	return NewGmailNotifierWithService(svc, sender), nil
}

// NewGmailNotifierWithService wraps an existing Gmail service.
func NewGmailNotifierWithService(svc *gmail.Service, sender string) *GmailNotifier {
	return &GmailNotifier{svc: svc, sender: sender}
}

// Send implements Notifier.
func (n *GmailNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	raw, err := BuildMIME(n.sender, msg)
	if err != nil {
		return fmt.Errorf("GmailNotifier.Send: building message: %w", err)
	}

	_, err = n.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("GmailNotifier.Send: %w", err)
	}
	return nil
}

// BuildMIME renders msg as an RFC 2822 message. Messages without attachments
// are single-part text/plain; otherwise multipart/mixed.
func BuildMIME(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	if from != "" {
		header("From", from)
	}
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("MIME-Version", "1.0")

	if len(msg.Attachments) == 0 {
		header("Content-Type", `text/plain; charset="UTF-8"`)
		header("Content-Transfer-Encoding", "base64")
		buf.WriteString("\r\n")
		buf.WriteString(wrap76(base64.StdEncoding.EncodeToString([]byte(msg.Body))))
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header("Content-Type", fmt.Sprintf(`multipart/mixed; boundary="%s"`, mw.Boundary()))
	buf.WriteString("\r\n")

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/plain; charset="UTF-8"`},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write([]byte(wrap76(base64.StdEncoding.EncodeToString([]byte(msg.Body))))); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(ct, map[string]string{"name": a.Filename})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(wrap76(base64.StdEncoding.EncodeToString(a.Data)))); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// wrap76 splits base64 output into 76-character lines.
func wrap76(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	b.WriteString("\r\n")
	return b.String()
}

// Ensure GmailNotifier implements Notifier.
var _ Notifier = (*GmailNotifier)(nil)
