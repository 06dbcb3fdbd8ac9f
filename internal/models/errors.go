package models

import "errors"

var (
	// ErrAlreadyFinalized is returned for any transition out of PICKED or DESTROYED.
	ErrAlreadyFinalized = errors.New("package already finalized")
	// ErrAlreadyPaid guards a pre-payment against being overwritten.
	ErrAlreadyPaid = errors.New("package already paid")
	ErrConflict    = errors.New("package changed concurrently")
)
