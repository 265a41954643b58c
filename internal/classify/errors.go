package classify

import (
	"context"
	"fmt"
)

// ErrCancelled is the distinct outcome of a user-cancelled classification
// attempt. Not a failure: the caller decides between a plain unenriched
// import and abandoning the run. Wraps context.Canceled so callers can test
// with errors.Is without importing this package.
var ErrCancelled = fmt.Errorf("classification cancelled: %w", context.Canceled)

// TransportError covers network failures and non-success response statuses.
// The documented fallback is importing without category enrichment.
type TransportError struct {
	Status int // 0 when the request never got a response
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("classification request failed: status %d", e.Status)
	}
	return fmt.Sprintf("classification request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError means the fully accumulated response text failed schema
// validation after streaming ended. Terminal for the classification attempt
// only.
type ParseError struct {
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	content := e.Content
	if len(content) > 200 {
		content = content[:200] + "..."
	}
	return fmt.Sprintf("classification response did not match schema: %v; content: %s", e.Err, content)
}

func (e *ParseError) Unwrap() error { return e.Err }
