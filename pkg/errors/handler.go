package errors

import (
	"log/slog"
)

// Reporter logs errors in a consistent way, choosing severity by type.
type Reporter struct {
	logger *slog.Logger
}

// NewReporter creates a new error reporter
func NewReporter(logger *slog.Logger) *Reporter {
	return &Reporter{
		logger: logger,
	}
}

// Report logs an error with its metadata
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}

	e, ok := err.(*Error)
	if !ok {
		r.logger.Error("unhandled error", slog.String("error", err.Error()))
		return
	}

	attrs := []any{
		slog.String("error_code", e.Code),
		slog.String("error_type", errorTypeToString(e.Type)),
		slog.Time("timestamp", e.Timestamp),
	}

	if e.Details != "" {
		attrs = append(attrs, slog.String("details", e.Details))
	}

	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}

	switch e.Type {
	case ErrorTypeInternal, ErrorTypeConnect:
		r.logger.Error(e.Message, attrs...)
	case ErrorTypeRead, ErrorTypeWrite:
		r.logger.Warn(e.Message, attrs...)
	default:
		r.logger.Info(e.Message, attrs...)
	}
}

// errorTypeToString converts ErrorType to string
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeConnect:
		return "connect"
	case ErrorTypeRead:
		return "read"
	case ErrorTypeWrite:
		return "write"
	case ErrorTypeProtocol:
		return "protocol"
	case ErrorTypeConfig:
		return "config"
	case ErrorTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}
