package notifications

import (
	"fmt"
	"log/slog"
)

// NewForDelivery picks the transport named by delivery ("log" or "smtp")
// and wraps it with the send timeout and circuit breaker.
func NewForDelivery(delivery string, smtp SMTPConfig, log *slog.Logger) (*ProtectedNotifier, error) {
	var inner Notifier

	switch delivery {
	case "", "log":
		inner = NewLogNotifier(log)
	case "smtp":
		inner = NewSMTPNotifier(smtp)
	default:
		return nil, fmt.Errorf("unknown mail delivery %q", delivery)
	}

	return NewProtectedNotifier(inner, ProtectedNotifierConfig{}), nil
}
