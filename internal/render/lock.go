package render

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"bespoke/internal/services"
)

// LockName is the lock file created in every render directory.
const LockName = ".bespoke.lock"

// DirLock guards a render directory against concurrent runs writing the same
// numbered filenames.
type DirLock struct {
	lock *flock.Flock
	path string
}

// LockDir takes an exclusive, non-blocking lock on dir.
func LockDir(dir string) (*DirLock, error) {
	path := filepath.Join(dir, LockName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "render", "lock directory", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "render", "lock directory", "another run is using "+dir, nil)
	}
	return &DirLock{lock: lock, path: path}, nil
}

// Path returns the lock file location.
func (l *DirLock) Path() string {
	return l.path
}

// Unlock releases the lock. The lock file is left in place.
func (l *DirLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
