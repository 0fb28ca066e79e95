package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// SMTPOptions configures an SMTPSender.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender renders a notification template and mails it to the user.
type SMTPSender struct {
	addr      string
	from      string
	auth      smtp.Auth
	templates *template.Template

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	nowFn    func() time.Time
}

// NewSMTPSender parses the embedded templates and prepares the SMTP client.
func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing notification templates: %w", err)
	}
	if opts.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	var auth smtp.Auth
	if opts.Username != "" {
		auth = smtp.PlainAuth("", opts.Username, opts.Password, opts.Host)
	}

	return &SMTPSender{
		addr:      net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		from:      opts.From,
		auth:      auth,
		templates: tmpl,
		sendMail:  smtp.SendMail,
		nowFn:     time.Now,
	}, nil
}

// Send renders n.Template and delivers it. net/smtp has no context support;
// an already cancelled ctx skips delivery.
func (s *SMTPSender) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.User.Email == "" {
		return ErrNoRecipient
	}

	msg, err := s.render(n)
	if err != nil {
		return err
	}
	if err := s.sendMail(s.addr, s.auth, s.from, []string{n.User.Email}, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", n.User.Email, err)
	}
	return nil
}

func (s *SMTPSender) render(n Notification) ([]byte, error) {
	var subject, body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&subject, n.Template+".subject", n); err != nil {
		return nil, fmt.Errorf("rendering subject of %s: %w", n.Template, err)
	}
	if err := s.templates.ExecuteTemplate(&body, n.Template+".body", n); err != nil {
		return nil, fmt.Errorf("rendering body of %s: %w", n.Template, err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", n.User.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", strings.TrimSpace(subject.String()))
	fmt.Fprintf(&msg, "Date: %s\r\n", s.nowFn().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(strings.TrimLeft(body.String(), "\n"), "\n", "\r\n"))
	return msg.Bytes(), nil
}
