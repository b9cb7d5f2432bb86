package ports

import (
	"context"
	"time"
)

// ErrorReport is the structured record shipped to the error sink.
type ErrorReport struct {
	ID        string            `json:"id"`
	Component string            `json:"component"`
	ErrorType string            `json:"error_type"`
	Message   string            `json:"message"`
	Stack     string            `json:"stack,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	At        time.Time         `json:"at"`
}

// ErrorReporter ships error reports to an external sink. Implementations
// must be best-effort: a failed delivery is logged by the caller, never
// propagated.
type ErrorReporter interface {
	Report(ctx context.Context, rep ErrorReport) error
}
