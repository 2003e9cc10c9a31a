package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrSessionLocked = fmt.Errorf("another dashboard session is running")

	// Request lifecycle errors
	ErrNotFound          = fmt.Errorf("song request not found")
	ErrInvalidTransition = fmt.Errorf("invalid status transition")
	ErrInvalidOperation  = fmt.Errorf("invalid operation")
	ErrRecordBusy        = fmt.Errorf("song request has an operation in flight")

	// Store and service errors
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
