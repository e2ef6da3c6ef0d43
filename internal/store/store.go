// Package store implements a crash-safe JSON document store: one document per
// file, guarded by an advisory lock on a sibling ".lock" file and replaced
// atomically on every write.
//
// Update is the only sanctioned read-modify-write primitive. Two callers that
// Save the same document concurrently race by definition; funnel such writes
// through Update instead.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LockSuffix is appended to the document path to form the lock file path.
const LockSuffix = ".lock"

// pathLocks serializes callers inside one process per lock path, regardless
// of how many Store values point at the same file.
var pathLocks sync.Map

// beforeRename runs after the temp file is fully written and synced, right
// before it replaces the document. Tests use it to simulate a crash.
var beforeRename = func(tmpPath string) error { return nil }

// Store holds one JSON document of type T.
type Store[T any] struct {
	path      string
	lockPath  string
	defaultFn func() T
}

// New returns a Store for the document at path. defaultFn builds the value
// written when the file is missing or blank; it must return a fresh value on
// every call.
func New[T any](path string, defaultFn func() T) (*Store[T], error) {
	if path == "" {
		return nil, &Error{Op: "open", Path: path, Err: errors.New("empty path")}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	if defaultFn == nil {
		defaultFn = func() T {
			var zero T
			return zero
		}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, &Error{Op: "open", Path: abs, Err: err}
	}
	return &Store[T]{path: abs, lockPath: abs + LockSuffix, defaultFn: defaultFn}, nil
}

// Path returns the absolute document path.
func (s *Store[T]) Path() string { return s.path }

// Load returns the current document, initializing it from the default when
// the file does not exist yet or is blank. Malformed content is reported and
// left untouched on disk.
func (s *Store[T]) Load(ctx context.Context) (T, error) {
	var doc T
	err := s.withLock(ctx, "load", func() error {
		var err error
		doc, err = s.read()
		return err
	})
	return doc, err
}

// Save replaces the document wholesale.
func (s *Store[T]) Save(ctx context.Context, doc T) error {
	return s.withLock(ctx, "save", func() error {
		return s.write(doc)
	})
}

// Update reads the document, hands it to fn and persists the result, all
// under the lock. fn returns changed=false to leave the file untouched; an
// error from fn aborts the update and is returned as is.
func (s *Store[T]) Update(ctx context.Context, fn func(doc T) (T, bool, error)) (T, error) {
	var result T
	err := s.withLock(ctx, "update", func() error {
		current, err := s.read()
		if err != nil {
			return err
		}
		next, changed, err := fn(current)
		if err != nil {
			result = current
			return err
		}
		if !changed {
			result = current
			return nil
		}
		if err := s.write(next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

func (s *Store[T]) withLock(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mu, _ := pathLocks.LoadOrStore(s.lockPath, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	defer m.Unlock()

	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return &Error{Op: op, Path: s.path, Err: fmt.Errorf("open lock: %w", err)}
	}
	defer f.Close()
	if err := lockFile(f); err != nil {
		return &Error{Op: op, Path: s.path, Err: fmt.Errorf("acquire lock: %w", err)}
	}
	defer func() { _ = unlockFile(f) }()

	return fn()
}

// read must be called with the lock held.
func (s *Store[T]) read() (T, error) {
	var doc T
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return doc, &Error{Op: "load", Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		doc = s.defaultFn()
		if err := s.write(doc); err != nil {
			return doc, err
		}
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, &Error{Op: "load", Path: s.path, Err: fmt.Errorf("parse: %w", err)}
	}
	return doc, nil
}

// write must be called with the lock held.
func (s *Store[T]) write(doc T) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &Error{Op: "write", Path: s.path, Err: err}
	}
	moved := false
	defer func() {
		_ = tmp.Close()
		if !moved {
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &Error{Op: "write", Path: s.path, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		return &Error{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Op: "write", Path: s.path, Err: err}
	}
	if err := beforeRename(tmp.Name()); err != nil {
		return &Error{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &Error{Op: "write", Path: s.path, Err: err}
	}
	moved = true
	_ = syncDir(dir)
	return nil
}

func syncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}
