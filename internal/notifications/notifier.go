package notifications

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
)

type VerificationEmail struct {
	To    string
	Token string
	// Link is the absolute confirmation URL the recipient clicks.
	Link string
}

type Notifier interface {
	SendVerificationEmail(ctx context.Context, in VerificationEmail) error
}

const verificationSubject = "Verify your email"

// VerificationLink builds <baseURL>/api/users/verify/<token>.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/users/verify/" + url.PathEscape(token)
}

func verificationBodies(link string) (text, htmlBody string) {
	text = fmt.Sprintf("Please verify your email by opening the link below:\n%s\n", link)
	htmlBody = fmt.Sprintf(`Please verify your email by clicking <a href="%s">here</a>.`, html.EscapeString(link))
	return text, htmlBody
}
