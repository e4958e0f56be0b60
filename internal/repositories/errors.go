package repositories

import "errors"

// ErrInvalidID reports an id that can never name a stored document. It is
// returned before any query runs so callers can reject the request outright
// instead of treating it as a retryable store failure.
var ErrInvalidID = errors.New("invalid id format")
