package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes the verification link to the log instead of sending
// mail. Default for local development.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, in VerificationEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.verification_email",
		"to", in.To,
		"link", in.Link,
	)
	return nil
}
