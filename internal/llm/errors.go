package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind classifies adapter failures so callers can pick their messaging
// without looking at provider internals.
type Kind string

const (
	KindMissingCredential Kind = "missing_credential"
	KindRateLimited       Kind = "rate_limited"
	KindNetwork           Kind = "network"
	KindParseEmpty        Kind = "parse_empty"
	KindParseMalformed    Kind = "parse_malformed"
	KindUpstream          Kind = "upstream"
)

func (k Kind) IsParse() bool { return k == KindParseEmpty || k == KindParseMalformed }

// Error is returned by every Client call that fails.
type Error struct {
	Kind    Kind
	Status  int    // provider HTTP status, 0 when no response was received
	Code    string // provider error code, if any
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("llm: %s: %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err if it wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}

func errMissingCredential() *Error {
	return &Error{Kind: KindMissingCredential, Message: "OPENAI_API_KEY missing"}
}

func classifyTransport(err error) *Error {
	if isNetworkError(err) {
		return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindUpstream, Message: err.Error(), Err: err}
}

func classifyStatus(status int, body apiErrorBody) *Error {
	code := body.Error.Code
	msg := body.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("provider returned %d", status)
	}
	if status == 429 || code == "rate_limit_exceeded" {
		return &Error{Kind: KindRateLimited, Status: status, Code: code, Message: msg}
	}
	return &Error{Kind: KindUpstream, Status: status, Code: code, Message: msg}
}

// isNetworkError covers DNS failures, refused or reset connections, timeouts
// and truncated responses.
func isNetworkError(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
