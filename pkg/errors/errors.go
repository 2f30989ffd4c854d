package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// Round coordination rejections, returned to submitters as explicit
	// outcomes and never fatal to the process.
	ErrStaleRound          = errors.New("submission round is behind the active round")
	ErrFutureRound         = errors.New("submission round is ahead of the active round")
	ErrShapeMismatch       = errors.New("parameter vector length differs from the global model")
	ErrDuplicateSubmission = errors.New("participant already submitted for the active round")

	// Directory lease errors.
	ErrLeaseExpired = errors.New("lease expired")
)
