//go:build !unix

package store

import "os"

// lockFile is a stub on non-Unix platforms; in-process serialization is
// still provided by the per-path mutex.
func lockFile(f *os.File) error { return nil }

// unlockFile is a stub counterpart to lockFile on non-Unix platforms.
func unlockFile(f *os.File) error { return nil }
