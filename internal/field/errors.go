package field

import "errors"

var (
	// ErrBadStructure reports a grid whose shape, ordering or counts do not
	// match the expected contract.
	ErrBadStructure = errors.New("bad grid structure")
	// ErrOutOfRange is returned by point queries outside the sampled region.
	ErrOutOfRange = errors.New("coordinate out of range")
	// ErrAllocFailed reports a payload too large to allocate.
	ErrAllocFailed = errors.New("sample allocation failed")
	// ErrReadFailure reports a truncated or unreadable binary file.
	ErrReadFailure = errors.New("field read failed")
	// ErrBadWrite reports a short or failed write of a binary file.
	ErrBadWrite = errors.New("field write failed")
)
