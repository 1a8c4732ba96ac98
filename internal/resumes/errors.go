package resumes

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a record was not found for the owner.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptRecord indicates a metadata row whose payload blob is
	// missing or unreadable. Distinct from ErrNotFound: the row exists.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrArtifactNotReady indicates a download before the render finished.
	ErrArtifactNotReady = errors.New("artifact not ready")
)

// StorageError reports a partial blob-storage failure that left the record
// in a recoverable inconsistent state.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s key=%s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
