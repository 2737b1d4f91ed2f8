package notifications

import "context"

// DirectDispatcher sends verification mail inline, without the jobs outbox.
// Used when there is no database to queue into.
type DirectDispatcher struct {
	notifier Notifier
	baseURL  string
}

func NewDirectDispatcher(notifier Notifier, baseURL string) *DirectDispatcher {
	return &DirectDispatcher{notifier: notifier, baseURL: baseURL}
}

func (d *DirectDispatcher) DispatchVerification(ctx context.Context, userID, email, token string) error {
	return d.notifier.SendVerificationEmail(ctx, VerificationEmail{
		To:    email,
		Token: token,
		Link:  VerificationLink(d.baseURL, token),
	})
}
