package ses

import "errors"

var (
	// ErrSuppressed is returned when the recipient is on the suppression
	// list. The send is blocked before any call to the provider.
	ErrSuppressed = errors.New("recipient is suppressed")

	// ErrNotConfigured is returned when the sender was built without AWS
	// credentials.
	ErrNotConfigured = errors.New("ses client not initialized - check credentials")
)
