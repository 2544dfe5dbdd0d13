// Package neterr maps transport and credential failures onto a fixed
// taxonomy carrying a retryability flag. Classification is total: every
// error resolves to exactly one NetworkError, unknown ones to a
// non-retryable Unknown.
package neterr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind is the failure class of a NetworkError.
type Kind string

const (
	KindTimeout      Kind = "timeout"
	KindNoConnection Kind = "no_connection"
	KindServerError  Kind = "server_error"
	KindTokenInvalid Kind = "token_invalid"
	KindUnknown      Kind = "unknown"
)

// NetworkError is an immutable classified failure.
//
// KindTokenInvalid is produced only by the credential layer (API client or
// the caller of the retry executor), never by the transport classifier.
type NetworkError struct {
	Kind       Kind
	Message    string
	StatusCode int // 0 when not an HTTP failure
	Details    string
	Retryable  bool
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewTokenInvalid builds the credential-layer classification. The transport
// classifier never returns this kind on its own.
func NewTokenInvalid(message string) *NetworkError {
	return &NetworkError{Kind: KindTokenInvalid, Message: message}
}

// Classify maps an arbitrary transport failure into a NetworkError.
// It is pure and total; nil maps to nil. An error that already is (or
// wraps) a *NetworkError is returned as-is, so caller-injected
// classifications survive intermediate wrapping.
func Classify(err error) *NetworkError {
	if err == nil {
		return nil
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Kind: KindTimeout, Message: err.Error(), Retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &NetworkError{Kind: KindTimeout, Message: err.Error(), Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &NetworkError{Kind: KindNoConnection, Message: err.Error(), Retryable: true}
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return &NetworkError{Kind: KindNoConnection, Message: err.Error(), Retryable: true}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &NetworkError{Kind: KindNoConnection, Message: err.Error(), Retryable: true}
	}

	// A truncated or otherwise malformed response is the server's fault
	// and worth another attempt.
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &NetworkError{Kind: KindServerError, Message: err.Error(), Retryable: true}
	}

	return &NetworkError{Kind: KindUnknown, Message: err.Error()}
}
