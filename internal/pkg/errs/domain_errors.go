package errs

import "errors"

// Sentinels shared between the use cases, the stores and the handlers
var (
	ErrOfferNotFound = errors.New("offer not found")

	ErrCycleInProgress = errors.New("cycle already in progress")

	ErrDatabaseOperationFailed = errors.New("database operation failed")
	// ErrStoreContention: store locked or busy after retries; the write may be retried later
	ErrStoreContention = errors.New("offer store is locked")
)
