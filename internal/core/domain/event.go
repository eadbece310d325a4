package domain

import "time"

// ValidationToken is a one-time activation code tied to an email.
type ValidationToken struct {
	Token      string    `json:"token" bson:"token"`
	Email      string    `json:"email" bson:"email"`
	ExpiryDate time.Time `json:"expiryDate" bson:"expiry_date"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

// Expired reports whether the token is no longer usable at now.
func (t *ValidationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiryDate)
}

// RegistrationEvent is published once per registration and consumed by the
// notification service to send the activation email.
type RegistrationEvent struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	ValidationToken string `json:"validationToken"`
}

// OutboxEvent is a bus message persisted in the same transaction as the
// business rows it describes, and dispatched later by the outbox relay.
type OutboxEvent struct {
	ID           string     `bson:"_id"`
	Topic        string     `bson:"topic"`
	Payload      []byte     `bson:"payload"`
	Attempts     int        `bson:"attempts"`
	LastError    string     `bson:"last_error,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	DispatchedAt *time.Time `bson:"dispatched_at,omitempty"`
}
