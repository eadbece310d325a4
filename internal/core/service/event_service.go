package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
)

const (
	ActivationSubject  = "Account Activation - No Reply"
	ActivationTemplate = "account-activation.html"
)

// DedupChecker abstracts the idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type notificationService struct {
	renderer ports.TemplateRenderer
	mailer   ports.Mailer
	dedup    DedupChecker
	log      zerolog.Logger
}

// NewNotificationService returns a NotificationService sending activation
// emails.
func NewNotificationService(
	renderer ports.TemplateRenderer,
	mailer ports.Mailer,
	dedup DedupChecker,
	log zerolog.Logger,
) ports.NotificationService {
	return &notificationService{
		renderer: renderer,
		mailer:   mailer,
		dedup:    dedup,
		log:      log,
	}
}

// HandleRegistration renders the activation template for event and mails it.
// Template failures are permanent; transport failures are retryable unless
// the mailer says otherwise.
func (s *notificationService) HandleRegistration(ctx context.Context, eventID string, event domain.RegistrationEvent) error {
	if eventID != "" {
		isDup, err := s.dedup.IsDuplicate(ctx, eventID)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("dedup check failed, processing anyway")
		} else if isDup {
			s.log.Debug().Str("event_id", eventID).Msg("duplicate event skipped")
			return ports.ErrDuplicateEvent
		}
	}

	body, err := s.renderer.Render(ActivationTemplate, map[string]string{
		"name":  event.Username,
		"token": event.ValidationToken,
	})
	if err != nil {
		return domain.EmailSending("render activation template", true, err)
	}

	start := time.Now()
	if err := s.mailer.Send(ctx, event.Email, ActivationSubject, body); err != nil {
		if domain.KindOf(err) == domain.KindEmailSending {
			return err
		}
		return domain.EmailSending("send activation email", false, err)
	}

	if eventID != "" {
		if err := s.dedup.Mark(ctx, eventID); err != nil {
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to set dedup key")
		}
	}

	s.log.Info().
		Str("event_id", eventID).
		Str("email", event.Email).
		Dur("send_duration", time.Since(start)).
		Msg("activation email sent")
	return nil
}
