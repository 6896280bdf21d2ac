// Package notify delivers invitation emails over SMTP.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"

	"github.com/soaringjerry/modern360/internal/config"
	"github.com/soaringjerry/modern360/internal/services"
)

// SMTPNotifier renders messages with a Composer and sends them through
// the configured SMTP relay. A new connection is dialed per message.
type SMTPNotifier struct {
	composer *Composer
	cfg      config.Mail
	opts     []mail.Option
}

var _ services.Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg config.Mail, composer *Composer) *SMTPNotifier {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return &SMTPNotifier{composer: composer, cfg: cfg, opts: opts}
}

// message builds the MIME message for msg without sending it.
func (n *SMTPNotifier) message(msg services.InvitationMessage) (*mail.Msg, error) {
	email, err := n.composer.Compose(msg)
	if err != nil {
		return nil, err
	}
	m := mail.NewMsg()
	if err := m.From(n.cfg.DefaultSender); err != nil {
		return nil, errors.Wrap(err, "set sender")
	}
	if err := m.To(email.To); err != nil {
		return nil, errors.Wrapf(err, "set recipient %q", email.To)
	}
	m.Subject(email.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, email.Text)
	m.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	return m, nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg services.InvitationMessage) error {
	m, err := n.message(msg)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(n.cfg.Server, n.opts...)
	if err != nil {
		return errors.Wrap(err, "create smtp client")
	}
	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrapf(err, "send %s email", msg.Kind)
	}
	slog.Info("invitation email sent", "kind", msg.Kind, "to", msg.Email, "duration", time.Since(start))
	return nil
}

// LogNotifier is used when no SMTP server is configured. It renders the
// message and logs the respond link instead of sending it.
type LogNotifier struct {
	composer *Composer
	logger   *slog.Logger
}

var _ services.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(composer *Composer, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{composer: composer, logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg services.InvitationMessage) error {
	email, err := n.composer.Compose(msg)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "mail disabled, invitation not sent",
		"kind", msg.Kind,
		"to", email.To,
		"subject", email.Subject,
		"url", n.composer.RespondURL(msg.Token),
	)
	return nil
}

// New picks the SMTP notifier when mail is configured and the log notifier
// otherwise.
func New(cfg *config.Config, logger *slog.Logger) services.Notifier {
	composer := NewComposer(cfg.DefaultLanguage, cfg.MainAppURL)
	if !cfg.Mail.Enabled() {
		return NewLogNotifier(composer, logger)
	}
	return NewSMTPNotifier(cfg.Mail, composer)
}
