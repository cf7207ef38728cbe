package buffile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("no space left on device")

type failingFile struct {
	closed bool
}

func (f *failingFile) ReadAt(p []byte, off int64) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func (f *failingFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, errDiskFull
}

func (f *failingFile) Close() error {
	f.closed = true
	return nil
}

func TestCloseReturnsFlushError(t *testing.T) {
	fp := &failingFile{}
	bf := newBufferedFile(fp, 0)
	off, err := bf.Append([]byte("pending"))
	require.Nil(t, err)
	assert.Equal(t, int64(0), off)

	err = bf.Close()
	assert.True(t, errors.Is(err, errDiskFull), "%v", err)
	assert.True(t, fp.closed)
}
