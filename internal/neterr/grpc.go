package neterr

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FromGRPCStatus classifies a gRPC call error for callers whose online
// operation speaks gRPC. nil maps to nil; a non-status error falls back to
// the generic classifier.
func FromGRPCStatus(err error) *NetworkError {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return Classify(err)
	}

	switch st.Code() {
	case codes.Unavailable:
		return &NetworkError{Kind: KindNoConnection, Message: st.Message(), Retryable: true}
	case codes.DeadlineExceeded:
		return &NetworkError{Kind: KindTimeout, Message: st.Message(), Retryable: true}
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return &NetworkError{Kind: KindServerError, Message: st.Message(), Retryable: true}
	case codes.Unauthenticated:
		return &NetworkError{Kind: KindTokenInvalid, Message: st.Message()}
	default:
		return &NetworkError{Kind: KindUnknown, Message: st.Message()}
	}
}
