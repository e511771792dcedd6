package events

import (
	"errors"
	"fmt"
)

// ErrSendNotFound is returned by SendRepository.Resolve when no send row
// matches the event's send id. The processor treats it as transient: the
// send row may simply not have committed yet.
var ErrSendNotFound = errors.New("send not found")

// ProcessingError is the terminal failure returned once the retry budget is
// exhausted. It wraps the last underlying cause.
type ProcessingError struct {
	ProviderEventID string
	Attempts        int
	Err             error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing event %s failed after %d attempts: %v",
		e.ProviderEventID, e.Attempts, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
