package logger

import (
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

// Field keys shared by every component that logs a marketplace failure.
const (
	KeyFetchErrorKind = "fetch_error_kind"
	KeyUpstreamStatus = "upstream_status"
	KeyRetryAfter     = "retry_after"
	KeyUpstreamURL    = "upstream_url"
)

// FetchErrorFields describes err for a log entry. A *domain.FetchError
// anywhere in the chain adds its kind, status, URL and rate-limit hint.
func FetchErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}

	fe, ok := domain.AsFetchError(err)
	if !ok {
		return fields
	}

	fields = append(fields, zap.String(KeyFetchErrorKind, string(fe.Kind)))
	if fe.StatusCode > 0 {
		fields = append(fields, zap.Int(KeyUpstreamStatus, fe.StatusCode))
	}
	if fe.URL != "" {
		fields = append(fields, zap.String(KeyUpstreamURL, fe.URL))
	}
	if fe.Kind == domain.FetchErrorRateLimited && fe.RetryAfter > 0 {
		fields = append(fields, zap.Duration(KeyRetryAfter, fe.RetryAfter))
	}

	return fields
}
