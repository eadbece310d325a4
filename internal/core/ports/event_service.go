package ports

import (
	"context"
	"errors"

	"github.com/clinic/backoffice/internal/core/domain"
)

// EventPublisher appends a serialized event to a bus topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventID string, payload []byte) error
}

// Mailer delivers a rendered HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NotificationService handles one consumed registration event.
type NotificationService interface {
	HandleRegistration(ctx context.Context, eventID string, event domain.RegistrationEvent) error
}

// TemplateRenderer loads a named template and substitutes {$key} placeholders.
type TemplateRenderer interface {
	Render(name string, data map[string]string) (string, error)
}

// ErrDuplicateEvent reports an event whose email was already sent. Consumers
// acknowledge it without retrying.
var ErrDuplicateEvent = errors.New("duplicate event")
