package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Email is the template data for an unread-message notification.
type Email struct {
	To          string
	ToName      string
	SenderName  string
	RoomName    string
	Preview     string
	RoomID      string
}

// Gateway delivers the escalation email. Failures are non-fatal to the
// scheduler; the pair is retried on the next scan.
type Gateway interface {
	Send(ctx context.Context, email Email) error
}

// SMTPGateway sends through a plain SMTP relay.
type SMTPGateway struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	AppURL   string
}

var _ Gateway = (*SMTPGateway)(nil)

// Send honors ctx by running the blocking smtp call in a goroutine; a
// timeout abandons the attempt and reports failure.
func (g *SMTPGateway) Send(ctx context.Context, email Email) error {
	addr := g.Host + ":" + g.Port
	var auth smtp.Auth
	if g.Username != "" {
		auth = smtp.PlainAuth("", g.Username, g.Password, g.Host)
	}
	msg := g.render(email)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, g.From, []string{email.To}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func (g *SMTPGateway) render(email Email) []byte {
	roomName := email.RoomName
	if roomName == "" {
		roomName = "your conversation"
	}
	link := strings.TrimRight(g.AppURL, "/") + "/chat/" + email.RoomID

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", g.From)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: 💬 %s sent you a message\r\n", email.SenderName)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, `<html><body>
<p>Hi <strong>%s</strong>,</p>
<p>You have a new message in <strong>%s</strong>:</p>
<blockquote><strong>%s:</strong> %s</blockquote>
<p><a href="%s">Open the conversation</a></p>
<p style="color:#6b7280;font-size:12px">You received this email because the
message stayed unread for 15 minutes. It was sent automatically; please do
not reply.</p>
</body></html>`, email.ToName, roomName, email.SenderName, email.Preview, link)
	return []byte(b.String())
}
