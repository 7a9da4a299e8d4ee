package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const publishEmailTimeout = 10 * time.Second

// Notifier mails the organizer when a match set is published.
type Notifier struct {
	sender    EmailSender
	recipient string
	from      string
	timeout   time.Duration
}

// NewNotifier returns nil when sender or recipient is missing so callers can
// treat a nil notifier as disabled.
func NewNotifier(sender EmailSender, recipient, from string) *Notifier {
	recipient = strings.TrimSpace(recipient)
	if sender == nil || recipient == "" {
		return nil
	}
	return &Notifier{
		sender:    sender,
		recipient: recipient,
		from:      strings.TrimSpace(from),
		timeout:   publishEmailTimeout,
	}
}

// SchedulePublished sends the publish mail asynchronously. The send outlives
// the request context.
func (n *Notifier) SchedulePublished(ctx context.Context, details PublishedDetails, logger *zerolog.Logger) {
	if n == nil {
		return
	}
	message := BuildSchedulePublished(details)

	go func() {
		sendCtx, cancel := newEmailContext(ctx, n.timeout)
		defer cancel()
		if err := n.sender.SendFrom(sendCtx, n.recipient, message.Subject, message.Body, n.from); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", n.recipient).Str("match_set_id", details.MatchSetID).Msg("Failed to send schedule published email")
			return
		}
		if logger != nil {
			logger.Info().Str("recipient", n.recipient).Str("match_set_id", details.MatchSetID).Msg("Schedule published email sent")
		}
	}()
}
