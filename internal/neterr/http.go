package neterr

import "net/http"

// FromHTTPStatus classifies a non-2xx HTTP response. Used by the API layer
// only; 401 is the one place the transport-adjacent code produces
// KindTokenInvalid, because HTTP folds credential rejection into a status.
func FromHTTPStatus(code int, message string) *NetworkError {
	switch {
	case code == http.StatusUnauthorized:
		return &NetworkError{Kind: KindTokenInvalid, Message: message, StatusCode: code}
	case code == http.StatusRequestTimeout:
		return &NetworkError{Kind: KindTimeout, Message: message, StatusCode: code, Retryable: true}
	case code == http.StatusTooManyRequests:
		return &NetworkError{Kind: KindServerError, Message: message, StatusCode: code, Retryable: true}
	case code >= 500:
		return &NetworkError{Kind: KindServerError, Message: message, StatusCode: code, Retryable: true}
	default:
		return &NetworkError{Kind: KindUnknown, Message: message, StatusCode: code}
	}
}
