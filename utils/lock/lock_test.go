//go:build unix

package lock_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/utils/lock"
)

func TestWriteExcludes(t *testing.T) {
	dir := t.TempDir()

	w, err := lock.Acquire(dir, lock.Write)
	require.Nil(t, err)
	assert.Equal(t, filepath.Join(dir, lock.FileName), w.Path())
	_, err = os.Stat(w.Path())
	assert.Nil(t, err)

	_, err = lock.TryAcquire(dir, lock.Read)
	assert.Equal(t, lock.ErrWouldBlock, err)
	_, err = lock.TryAcquire(dir, lock.Write)
	assert.Equal(t, lock.ErrWouldBlock, err)

	require.Nil(t, w.Release())
	// idempotent
	require.Nil(t, w.Release())

	r, err := lock.TryAcquire(dir, lock.Write)
	require.Nil(t, err)
	require.Nil(t, r.Release())
}

func TestReadersShare(t *testing.T) {
	dir := t.TempDir()

	r1, err := lock.Acquire(dir, lock.Read)
	require.Nil(t, err)
	r2, err := lock.TryAcquire(dir, lock.Read)
	require.Nil(t, err)

	_, err = lock.TryAcquire(dir, lock.Write)
	assert.Equal(t, lock.ErrWouldBlock, err)

	require.Nil(t, r1.Release())
	require.Nil(t, r2.Release())
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	dir := t.TempDir()

	w, err := lock.Acquire(dir, lock.Write)
	require.Nil(t, err)

	got := make(chan *lock.Lock)
	go func() {
		l, err := lock.Acquire(dir, lock.Read)
		if err != nil {
			close(got)
			return
		}
		got <- l
	}()

	select {
	case <-got:
		t.Fatal("read lock granted while write lock held")
	case <-time.After(50 * time.Millisecond):
	}

	require.Nil(t, w.Release())
	l, ok := <-got
	require.True(t, ok)
	assert.Equal(t, lock.Read, l.Mode())
	require.Nil(t, l.Release())
}

func TestMissingDirectory(t *testing.T) {
	_, err := lock.Acquire(filepath.Join(t.TempDir(), "nope"), lock.Write)
	assert.NotNil(t, err)
}
