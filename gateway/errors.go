package gateway

import (
	"errors"
	"fmt"
)

// ValidationError reports a draft rejected locally before any remote call:
// empty snippet content, missing file payload. It never corresponds to
// network traffic.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "gateway: invalid draft: " + e.Reason
}

// TransportError reports a failed remote operation: network failure, a
// non-success HTTP status, or a malformed success body. The three are
// deliberately uniform: the remote store signals nothing the engine could
// act on beyond "retry by refresh".
type TransportError struct {
	Op      string // e.g. "list items", "delete item"
	Status  int    // HTTP status; 0 when the request never completed
	Message string // server-provided error message, or a generic fallback
	Cause   error  // underlying error, may be nil
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway: %s: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Reason returns the human-readable description of err, unwrapping the
// taxonomy's message fields when present. Presentation layers use this for
// transient notifications and the engine for its snapshot error message.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return err.Error()
}
