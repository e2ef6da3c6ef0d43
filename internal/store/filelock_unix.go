//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile obtains an exclusive advisory lock on the provided file handle.
// flock locks belong to the open file description, so two handles opened by
// the same process exclude each other as well.
func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

// unlockFile releases the advisory lock held on the provided file handle.
func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
