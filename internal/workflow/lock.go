package workflow

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrRunInProgress reports that another run holds the lock.
var ErrRunInProgress = errors.New("another vidshelf run is in progress")

// LockPath returns the run lock path that guards trackerPath.
func LockPath(trackerPath string) string {
	return trackerPath + ".lock"
}

func acquireLock(trackerPath string) (*flock.Flock, error) {
	lock := flock.New(LockPath(trackerPath))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunInProgress, lock.Path())
	}
	return lock, nil
}
