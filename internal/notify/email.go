package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
	"mathmotion.app/studio/core/config"
)

// Mailer sends job outcome notifications over SMTP. Disabled (all methods
// no-op) when no SMTP host is configured. Delivery is best effort: failures
// are logged, never propagated to the job.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) JobCompleted(ctx context.Context, email, question, resultURL string) {
	subject := "Your video is ready"
	body := fmt.Sprintf(
		"Your animated explanation for %q has finished rendering.\n\nResult: %s\n",
		question, resultURL)
	m.send(ctx, email, subject, body)
}

func (m *Mailer) JobFailed(ctx context.Context, email, question, errMsg string) {
	subject := "Your video could not be generated"
	body := fmt.Sprintf(
		"We could not generate an animated explanation for %q.\n\nReason: %s\n",
		question, errMsg)
	m.send(ctx, email, subject, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) {
	if !m.cfg.Enabled() {
		return
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		slog.ErrorContext(ctx, "invalid sender address", "error", err)
		return
	}
	if err := msg.To(to); err != nil {
		slog.WarnContext(ctx, "invalid recipient address", "error", err)
		return
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
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
		slog.ErrorContext(ctx, "smtp client setup failed", "error", err)
		return
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "notification delivery failed",
			"recipient", to,
			"error", err)
		return
	}

	slog.InfoContext(ctx, "notification sent", "recipient", to, "subject", subject)
}
