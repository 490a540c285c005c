package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"facilitymonitor/internal/config"
	"github.com/wneessen/go-mail"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<h1>Password Reset</h1>
<p>You requested a password reset for your Facility Monitoring account.</p>
<p>Click the link below to reset your password:</p>
<a href="{{.Link}}">Reset Password</a>
<p>This link will expire in {{.Validity}}.</p>
<p>If you didn't request this, please ignore this email.</p>
`))

// RenderResetBody returns the HTML body of the reset email.
func RenderResetBody(link, validity string) (string, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, struct{ Link, Validity string }{link, validity}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SMTPMailer sends reset links over SMTP with implicit TLS.
type SMTPMailer struct {
	cfg      config.SMTPConfig
	validity string
}

func NewSMTPMailer(cfg config.SMTPConfig, validity string) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, validity: validity}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	body, err := RenderResetBody(link, m.validity)
	if err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Password Reset Request")
	msg.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("deliver reset email: %w", err)
	}
	return nil
}

// LogMailer stands in when SMTP is not configured. It logs the recipient and
// the link at warn level so a developer can complete the flow locally.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.logger.Warn("SMTP not configured, reset link not emailed", "to", to, "link", link)
	return nil
}
