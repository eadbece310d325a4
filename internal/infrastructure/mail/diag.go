package mail

import (
	"errors"
	"net"
	"strings"
)

// SMTPDiag classifies an SMTP failure.
type SMTPDiag struct {
	Code      string // timeout|dial|tls|auth|rate_limited|invalid_recipient|rejected|network|unknown
	Temporary bool
}

// DiagnoseSMTP inspects err and decides whether a retry can succeed. Only
// failures tied to the recipient or the message itself are permanent;
// configuration problems (auth, tls) heal once fixed, so they stay retryable.
func DiagnoseSMTP(err error) SMTPDiag {
	if err == nil {
		return SMTPDiag{Code: "unknown"}
	}
	s := strings.ToLower(err.Error())

	var ne net.Error
	isNetErr := errors.As(err, &ne)

	switch {
	case isNetErr && ne.Timeout(), strings.Contains(s, "timeout"):
		return SMTPDiag{Code: "timeout", Temporary: true}
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "no such host"),
		strings.Contains(s, "dial tcp"):
		return SMTPDiag{Code: "dial", Temporary: true}
	case strings.Contains(s, "x509:"),
		strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")):
		return SMTPDiag{Code: "tls", Temporary: true}
	case strings.Contains(s, "5.7.8"), strings.Contains(s, "535"),
		strings.Contains(s, "authentication failed"),
		strings.Contains(s, "auth") && strings.Contains(s, "failed"):
		return SMTPDiag{Code: "auth", Temporary: true}
	case strings.Contains(s, "4.7.0"),
		strings.Contains(s, "rate limit"),
		strings.Contains(s, "try again later"),
		strings.Contains(s, "451"), strings.Contains(s, "421"):
		return SMTPDiag{Code: "rate_limited", Temporary: true}
	case strings.Contains(s, "5.1.1"),
		strings.Contains(s, "user unknown"),
		strings.Contains(s, "mailbox not found"),
		strings.Contains(s, "550"):
		return SMTPDiag{Code: "invalid_recipient", Temporary: false}
	case strings.Contains(s, "5.7.1"),
		strings.Contains(s, "message rejected"),
		strings.Contains(s, "554"):
		return SMTPDiag{Code: "rejected", Temporary: false}
	case isNetErr:
		return SMTPDiag{Code: "network", Temporary: true}
	}
	return SMTPDiag{Code: "unknown", Temporary: true}
}
