//go:build unix

package lock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type flockHandle struct {
	f *os.File
}

func (h *flockHandle) unlock() error {
	uerr := unix.Flock(int(h.f.Fd()), unix.LOCK_UN)
	cerr := h.f.Close()
	if uerr != nil {
		return uerr
	}
	return cerr
}

func lockFile(path string, mode Mode, wait bool) (handle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o664)
	if err != nil && mode == Read {
		// read-only directories can still be share-locked if the file exists
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open lock file: %w", err)
	}

	how := unix.LOCK_SH
	if mode == Write {
		how = unix.LOCK_EX
	}
	if !wait {
		how |= unix.LOCK_NB
	}
	for {
		err = unix.Flock(int(f.Fd()), how)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &flockHandle{f: f}, nil
}
