//go:build !unix

package lock

import "errors"

func lockFile(path string, mode Mode, wait bool) (handle, error) {
	return nil, errors.New("directory locking is not supported on this platform")
}
