package domain

import (
	"errors"
	"strings"
)

// Kind classifies a failure for the HTTP boundary and for retry decisions.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindBrokerMsg
	KindToken
	KindEmailSending
	KindUpstream
	KindUpstreamTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindBrokerMsg:
		return "broker_msg"
	case KindToken:
		return "token"
	case KindEmailSending:
		return "email_sending"
	case KindUpstream:
		return "upstream"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	default:
		return "internal"
	}
}

// Error is the single typed error used across services.
type Error struct {
	Kind    Kind
	Message string
	// Violations lists every failed rule for KindBadRequest.
	Violations []string
	// Permanent marks failures that will not heal on retry.
	Permanent bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Violations) > 0 {
		msg += ": " + strings.Join(e.Violations, "; ")
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrUserNotFound)
// holds for every not-found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Kind sentinels for errors.Is checks.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrBadRequest      = &Error{Kind: KindBadRequest}
	ErrBrokerMsg       = &Error{Kind: KindBrokerMsg}
	ErrToken           = &Error{Kind: KindToken}
	ErrEmailSending    = &Error{Kind: KindEmailSending}
	ErrUpstream        = &Error{Kind: KindUpstream}
	ErrUpstreamTimeout = &Error{Kind: KindUpstreamTimeout}
)

const (
	MsgUserNotFound       = "User not found"
	MsgIncorrectPassword  = "Incorrect Password"
	MsgUserNotEnabled     = "User not enabled"
	MsgAccountExpired     = "User account expired"
	MsgAccountLocked      = "User account locked"
	MsgCredentialsExpired = "User credentials expired"
	MsgUnauthorizedAccess = "Unauthorized resource access"
)

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

// BadRequest carries the full list of violated rules.
func BadRequest(violations ...string) error {
	return &Error{Kind: KindBadRequest, Message: "Validation failed", Violations: violations}
}

func BrokerMsg(msg string, err error) error {
	return &Error{Kind: KindBrokerMsg, Message: msg, Err: err}
}

func InvalidToken(msg string, err error) error {
	return &Error{Kind: KindToken, Message: msg, Err: err}
}

// EmailSending reports a failed notification. permanent=true means the
// message should not be redelivered.
func EmailSending(msg string, permanent bool, err error) error {
	return &Error{Kind: KindEmailSending, Message: msg, Permanent: permanent, Err: err}
}

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func UpstreamTimeout(msg string, err error) error {
	return &Error{Kind: KindUpstreamTimeout, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsPermanent reports whether err was marked non-retryable.
func IsPermanent(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Permanent
}
