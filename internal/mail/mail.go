package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
	"github.com/user/vidnest/internal/config"
	"gopkg.in/gomail.v2"
)

// Message is an outgoing email
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers email
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender, or a log-only sender when no SMTP host is configured
func New(cfg *config.MailConfig) Sender {
	if cfg.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, emails will be logged instead of sent")
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}

// SMTPSender delivers mail through an SMTP relay
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender for the configured relay
func NewSMTPSender(cfg *config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers msg, giving up early if ctx is already done
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}

	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Mail sent")
	return nil
}

// LogSender writes mails to the log; used in development
type LogSender struct{}

// Send logs msg
func (LogSender) Send(ctx context.Context, msg Message) error {
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Mail (not sent)")
	// the body carries live reset links
	log.Debug().
		Str("to", msg.To).
		Str("body", msg.Text).
		Msg("Mail body (not sent)")
	return nil
}

var resetHTML = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password of your VidNest account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link expires in {{.Expiry}}. If you did not ask for this, ignore this email.</p>`))

// PasswordReset builds the password-reset email for a user
func PasswordReset(to, name, link, expiry string) (Message, error) {
	var html bytes.Buffer
	data := struct{ Name, Link, Expiry string }{name, link, expiry}
	if err := resetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render reset mail: %w", err)
	}

	text := fmt.Sprintf("Hi %s,\n\nSomeone asked to reset the password of your VidNest account.\n"+
		"Open this link to choose a new password:\n\n%s\n\n"+
		"The link expires in %s. If you did not ask for this, ignore this email.\n", name, link, expiry)

	return Message{
		To:      to,
		Subject: "Reset your VidNest password",
		Text:    text,
		HTML:    html.String(),
	}, nil
}
