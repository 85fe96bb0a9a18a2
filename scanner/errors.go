package scanner

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrRootAccess is returned by Run when at least one root argument could not
// be accessed. The remaining roots are still scanned.
var ErrRootAccess = errors.New("one or more paths could not be accessed")

type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string { return e.err.Error() }
func (e *recoverableError) Unwrap() error { return e.err }

// Recoverable marks an action error as counted-and-continue. Action errors
// that are not marked abort the whole run.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &recoverableError{err: err}
}

// IsRecoverable reports whether err was marked with Recoverable.
func IsRecoverable(err error) bool {
	var re *recoverableError
	return errors.As(err, &re)
}

// isAccessError matches the two errors a walk over a live tree must expect:
// permission denied and vanished entries.
func isAccessError(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.ENOENT)
}
