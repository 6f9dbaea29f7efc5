package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"expressconnect/internal/notify"
)

// Email is a rendered-enough message for the delivery layer. Templates live
// with the mail provider; Template names which one to use.
type Email struct {
	MessageID string
	From      string
	To        string
	Subject   string
	Template  string
	Data      map[string]string
}

type Mailer interface {
	Deliver(ctx context.Context, email Email) error
}

var subjects = map[notify.Kind]string{
	notify.KindOTP:       "Your sign-in code",
	notify.KindMagicLink: "Your sign-in link",
	notify.KindResetLink: "Reset your password",
}

type Processor struct {
	mailer Mailer
	from   string
	logger zerolog.Logger
}

func NewProcessor(mailer Mailer, from string, logger zerolog.Logger) *Processor {
	return &Processor{
		mailer: mailer,
		from:   from,
		logger: logger,
	}
}

// Handle delivers one stream message. Messages that can never be delivered
// are logged and dropped so they do not block the group; delivery errors
// are returned and the message is retried later.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	m, err := notify.Decode(msg.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("stream_id", msg.ID).Msg("dropping undeliverable notification")
		return nil
	}

	email := Email{
		MessageID: m.ID,
		From:      p.from,
		To:        m.To,
		Subject:   subjects[m.Kind],
		Template:  string(m.Kind),
		Data:      m.Data,
	}
	if err := p.mailer.Deliver(ctx, email); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", m.Kind, m.To, err)
	}

	p.logger.Info().
		Str("message_id", m.ID).
		Str("kind", string(m.Kind)).
		Str("to", m.To).
		Msg("notification delivered")
	return nil
}

// LogMailer records deliveries in the log without sending anything. Secret
// values in Data are not logged.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Deliver(_ context.Context, email Email) error {
	keys := make([]string, 0, len(email.Data))
	for k := range email.Data {
		keys = append(keys, k)
	}
	m.logger.Info().
		Str("message_id", email.MessageID).
		Str("from", email.From).
		Str("to", email.To).
		Str("subject", email.Subject).
		Str("template", email.Template).
		Strs("fields", keys).
		Msg("email queued for delivery")
	return nil
}
