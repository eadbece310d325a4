package mail

import (
	"context"
	"crypto/tls"
	"fmt"

	gomail "github.com/go-mail/mail"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/core/domain"
)

// TLS modes accepted by SMTPSender.
const (
	TLSAuto     = "auto"
	TLSStartTLS = "starttls"
	TLSSSL      = "ssl"
	TLSNone     = "none"
)

// SMTPSender implements ports.Mailer over SMTP.
type SMTPSender struct {
	Host     string
	Port     int
	From     string
	FromName string
	User     string
	Pass     string
	TLSMode  string

	dial func(*gomail.Dialer, *gomail.Message) error
	log  zerolog.Logger
}

func NewSMTPSender(host string, port int, from, fromName, user, pass, tlsMode string, log zerolog.Logger) *SMTPSender {
	if tlsMode == "" {
		tlsMode = TLSAuto
	}
	return &SMTPSender{
		Host:     host,
		Port:     port,
		From:     from,
		FromName: fromName,
		User:     user,
		Pass:     pass,
		TLSMode:  tlsMode,
		dial:     func(d *gomail.Dialer, m *gomail.Message) error { return d.DialAndSend(m) },
		log:      log.With().Str("component", "smtp").Str("host", host).Int("port", port).Logger(),
	}
}

// Send delivers an HTML email. Failures come back as EmailSending errors,
// marked permanent when the server rejected the recipient or the message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return domain.EmailSending("send email", false, err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.From, s.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dial(s.dialer(), m); err != nil {
		diag := DiagnoseSMTP(err)
		s.log.Error().Err(err).Str("code", diag.Code).Bool("temporary", diag.Temporary).Msg("smtp send failed")
		return domain.EmailSending(fmt.Sprintf("smtp send (%s)", diag.Code), !diag.Temporary, err)
	}

	s.log.Debug().Str("subject", subject).Msg("email sent")
	return nil
}

func (s *SMTPSender) dialer() *gomail.Dialer {
	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}

	switch s.TLSMode {
	case TLSSSL:
		d.SSL = true
	case TLSStartTLS:
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	case TLSNone:
		d.StartTLSPolicy = gomail.NoStartTLS
	default:
		d.StartTLSPolicy = gomail.OpportunisticStartTLS
	}
	return d
}
