package illustraitor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures at the API boundary.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation means the call was rejected before any network I/O.
	KindValidation
	// KindNetwork means the service could not be reached.
	KindNetwork
	// KindTimeout means the call exceeded its time budget and was aborted.
	KindTimeout
	// KindServer means the service answered with a non-success status.
	KindServer
	// KindParse means the response body could not be understood.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNetwork:
		return "NetworkError"
	case KindTimeout:
		return "TimeoutError"
	case KindServer:
		return "ServerError"
	case KindParse:
		return "ParseError"
	default:
		return "UnknownError"
	}
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrServer     = &Error{Kind: KindServer}
	ErrParse      = &Error{Kind: KindParse}

	// ErrInvalidKey is wrapped by credit check failures caused by a missing or rejected key.
	ErrInvalidKey = errors.New("invalid key")
)

// Error is the single error type returned by Client methods.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && (e.Message == "" || e.Err.Error() != e.Message) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a kind sentinel (an *Error with no message) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.StatusCode == 0 && t.Err == nil && t.Kind == e.Kind
}

// InsufficientCredits reports whether the service refused the call for lack of credits.
func (e *Error) InsufficientCredits() bool {
	if e.Kind != KindServer {
		return false
	}
	if e.StatusCode == 402 {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "insufficient credit") ||
		strings.Contains(msg, "not enough credits") ||
		strings.Contains(msg, "недостаточно кредитов")
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsInsufficientCredits reports whether err is a ServerError about missing credits.
func IsInsufficientCredits(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.InsufficientCredits()
}

// UserMessage converts err into a single status line suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindTimeout:
		return "The service did not answer in time. It may be starting up, try again in a moment."
	case KindNetwork:
		return "Could not connect to the image service. Check the endpoint and your connection."
	case KindParse:
		return "The service sent a response that could not be read: " + e.Message
	case KindServer:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("The service returned HTTP %d", e.StatusCode)
	default:
		return e.Message
	}
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func parseError(msg string, err error) *Error {
	return &Error{Kind: KindParse, Message: msg, Err: err}
}
