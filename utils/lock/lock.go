// Package lock provides the advisory lock that serializes access to a
// product directory between processes.
package lock

import (
	"errors"
	"path/filepath"
)

// FileName is the lock file created inside each locked directory.
const FileName = "_lock"

type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// ErrWouldBlock is returned by TryAcquire when another holder
// conflicts with the requested mode.
var ErrWouldBlock = errors.New("lock is held elsewhere")

// Lock is a held directory lock.  Release is safe to call more than once.
type Lock struct {
	path string
	mode Mode
	h    handle
}

func (l *Lock) Path() string { return l.path }

func (l *Lock) Mode() Mode { return l.mode }

func (l *Lock) Release() error {
	if l == nil || l.h == nil {
		return nil
	}
	err := l.h.unlock()
	l.h = nil
	return err
}

// Acquire blocks until dir's lock is held in mode: shared for Read,
// exclusive for Write.
func Acquire(dir string, mode Mode) (*Lock, error) {
	return acquire(dir, mode, true)
}

// TryAcquire is Acquire without waiting.
func TryAcquire(dir string, mode Mode) (*Lock, error) {
	return acquire(dir, mode, false)
}

func acquire(dir string, mode Mode, wait bool) (*Lock, error) {
	p := filepath.Join(dir, FileName)
	h, err := lockFile(p, mode, wait)
	if err != nil {
		return nil, err
	}
	return &Lock{path: p, mode: mode, h: h}, nil
}

type handle interface {
	unlock() error
}
