// Package apierr maps provider failures onto a small closed taxonomy with
// user-facing sentences.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a normalized failure.
type Kind string

const (
	KindRateLimited        Kind = "rate_limited"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindForbidden          Kind = "forbidden"
	KindServiceUnavailable Kind = "service_unavailable"
	KindDeviceUnavailable  Kind = "device_unavailable"
	KindUnknown            Kind = "unknown"
)

// ErrDeviceUnavailable marks capture-device acquisition failures.
var ErrDeviceUnavailable = errors.New("audio capture device unavailable")

// Error is a provider-agnostic failure. Message is a short sentence safe to show to users.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	// Status is the HTTP status observed at the failure boundary, 0 when unknown.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by Kind so callers can write errors.Is(err, &apierr.Error{Kind: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// As extracts a normalized error from err's chain.
func As(err error) (*Error, bool) {
	var ne *Error
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// KindOf returns the kind of a normalized error, or KindUnknown.
func KindOf(err error) Kind {
	if ne, ok := As(err); ok {
		return ne.Kind
	}
	return KindUnknown
}

// StatusError is returned by adapters that talk raw HTTP instead of an SDK.
type StatusError struct {
	Provider   string
	StatusCode int
	// Code is the provider's machine-readable error code, when the body carried one.
	Code string
	Body string
}

func (e *StatusError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "http %d", e.StatusCode)
	if text := http.StatusText(e.StatusCode); text != "" {
		b.WriteString(" ")
		b.WriteString(text)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		b.WriteString(": ")
		b.WriteString(body)
	}
	return b.String()
}
