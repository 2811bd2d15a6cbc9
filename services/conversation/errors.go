package conversation

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when the per-identity lock cannot be acquired in time.
// The webhook handler surfaces it as a transport failure so the channel
// redelivers the message.
var ErrBusy = errors.New("identity busy, retry delivery")

// StorageError marks a session-store failure. The webhook handler answers
// these with a transport-level error so the channel considers redelivery.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storageError: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
