package sip

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gofrs/flock"

	"sipstructure/internal/apperr"
	"sipstructure/internal/fileutil"
)

// ErrDestinationBusy is returned when another run holds the destination lock.
var ErrDestinationBusy = errors.New("destination is in use by another run")

var unsafeLockChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LockPath returns the lock file used for destination. The readable part is
// truncated, so a short hash of the full path keeps names unique.
func LockPath(lockDir, destination string) string {
	sum := sha256.Sum256([]byte(destination))
	name := strings.Trim(unsafeLockChars.ReplaceAllString(destination, "_"), "_")
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	return filepath.Join(lockDir, name+"-"+hex.EncodeToString(sum[:4])+".lock")
}

type destinationLock struct {
	path string
	lock *flock.Flock
}

func acquireLock(lockDir, destination string) (*destinationLock, error) {
	if err := fileutil.EnsureDir(lockDir); err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "lock", "prepare", lockDir, err)
	}
	path := LockPath(lockDir, destination)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, apperr.Wrap(apperr.ErrTransient, "lock", "acquire", destination, ErrDestinationBusy)
	}
	return &destinationLock{path: path, lock: lock}, nil
}

func (l *destinationLock) release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
