package neterr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "i/o timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestClassify_Nil(t *testing.T) {
	require.Nil(t, Classify(nil))
}

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout, true},
		{"net timeout", fakeTimeoutErr{}, KindTimeout, true},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "api.sciq.dev"}, KindNoConnection, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), KindNoConnection, true},
		{"connection reset", syscall.ECONNRESET, KindNoConnection, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("socket closed")}, KindNoConnection, true},
		{"truncated response", io.ErrUnexpectedEOF, KindServerError, true},
		{"anything else", errors.New("invalid credentials"), KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ne := Classify(tt.err)
			require.NotNil(t, ne)
			require.Equal(t, tt.kind, ne.Kind)
			require.Equal(t, tt.retryable, ne.Retryable)
		})
	}
}

func TestClassify_PreservesExistingClassification(t *testing.T) {
	orig := NewTokenInvalid("token expired")
	wrapped := fmt.Errorf("call failed: %w", orig)

	got := Classify(wrapped)
	require.Same(t, orig, got)
}

func TestClassify_NeverProducesTokenInvalid(t *testing.T) {
	// the transport classifier must never invent a credential failure
	for _, err := range []error{
		context.DeadlineExceeded,
		syscall.ECONNREFUSED,
		errors.New("401 unauthorized"),
	} {
		require.NotEqual(t, KindTokenInvalid, Classify(err).Kind)
	}
}

func TestNetworkError_Error(t *testing.T) {
	e := &NetworkError{Kind: KindServerError, Message: "boom", StatusCode: 503}
	require.Equal(t, "server_error: boom (status 503)", e.Error())

	e2 := &NetworkError{Kind: KindTimeout, Message: "slow"}
	require.Equal(t, "timeout: slow", e2.Error())
}

func TestFromGRPCStatus(t *testing.T) {
	tests := []struct {
		code codes.Code
		kind Kind
	}{
		{codes.Unavailable, KindNoConnection},
		{codes.DeadlineExceeded, KindTimeout},
		{codes.Internal, KindServerError},
		{codes.Unauthenticated, KindTokenInvalid},
		{codes.InvalidArgument, KindUnknown},
	}

	for _, tt := range tests {
		ne := FromGRPCStatus(status.Error(tt.code, "rpc failed"))
		require.Equal(t, tt.kind, ne.Kind, "code %s", tt.code)
	}

	require.Nil(t, FromGRPCStatus(nil))
}

func TestFromHTTPStatus(t *testing.T) {
	require.Equal(t, KindTokenInvalid, FromHTTPStatus(401, "unauthorized").Kind)
	require.Equal(t, KindTimeout, FromHTTPStatus(408, "timeout").Kind)

	srv := FromHTTPStatus(503, "unavailable")
	require.Equal(t, KindServerError, srv.Kind)
	require.True(t, srv.Retryable)
	require.Equal(t, 503, srv.StatusCode)

	bad := FromHTTPStatus(400, "bad request")
	require.Equal(t, KindUnknown, bad.Kind)
	require.False(t, bad.Retryable)
}
