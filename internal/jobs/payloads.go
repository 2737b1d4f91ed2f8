package jobs

import "time"

// VerificationEmailPayload carries everything the worker needs to send the
// verification mail without reading the users table.
type VerificationEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}
