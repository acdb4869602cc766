package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured       = errors.New("application settings not loaded")
	ErrOutOfBounds         = errors.New("you are not within the authorized location")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrNoOpenRecord        = errors.New("no active check-in found")
	ErrStoreFailure        = errors.New("attendance store failure")
	ErrNotSignedIn         = errors.New("not signed in")
	ErrBusy                = errors.New("another attendance operation is in progress")

	// ErrDuplicateOpenRecord is returned by stores when a second open record
	// would be created for the same user.
	ErrDuplicateOpenRecord = fmt.Errorf("%w: an open attendance record already exists", ErrStoreFailure)
)

// StateError is returned when an operation is not allowed in the tracker's
// current status.
type StateError struct {
	Op     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.Status)
}

func storeFailure(op string, err error) error {
	if errors.Is(err, ErrStoreFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}
