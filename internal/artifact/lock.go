package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/CivicActions/Drupal-ACR/internal/services"
)

const lockFileName = ".acr.lock"

// Lock is an advisory lock on the artifact directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the directory lock without blocking. A lock held by another
// process is reported as a configuration error.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	path := filepath.Join(dir, lockFileName)
	l := &Lock{path: path, lock: flock.New(path)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "artifact", "lock",
			fmt.Sprintf("another acr stage is writing to %s (lock %s)", dir, path), nil)
	}
	return l, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the directory.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
