package buffile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/executor/buffile"
)

func TestBufferedFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.bin")
	fp, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR, 0o700)
	require.Nil(t, err)
	err = fp.Truncate(1024 * 1024)
	require.Nil(t, err)
	err = fp.Close()
	require.Nil(t, err)

	bf, err := buffile.New(filePath)
	assert.Nil(t, err)
	assert.Equal(t, int64(1024*1024), bf.Size())
	dataIn := make([]byte, 64)
	for i := 0; i < len(dataIn); i++ {
		dataIn[i] = 0xaa
	}
	offset := int64(128)
	offset2 := offset * 3
	offset3 := int64(buffile.DefaultBlockSize - 2)
	offset4 := int64(1024*1024 - len(dataIn))
	for _, off := range []int64{offset, offset2, offset3, offset4} {
		_, err = bf.WriteAt(dataIn, off)
		require.Nil(t, err)
	}
	err = bf.Close()
	require.Nil(t, err)

	fp, err = os.Open(filePath)
	assert.Nil(t, err)
	checkFunc := func(offset int64, size int) {
		outData := make([]byte, size+2)
		_, _ = fp.ReadAt(outData, offset-1)
		assert.Equal(t, outData[0], byte(0x00))
		for i := 0; i < size; i++ {
			assert.Equal(t, outData[i+1], byte(0xaa))
		}
		assert.Equal(t, outData[size+1], byte(0x00))
	}
	checkFunc(offset, len(dataIn))
	checkFunc(offset2, len(dataIn))
	checkFunc(offset3, len(dataIn))
	checkFunc(offset4, len(dataIn))
	fs, _ := fp.Stat()
	// make sure the file hasn't extended
	assert.Equal(t, fs.Size(), int64(1024*1024))
	fp.Close()
}

func TestAppendGrowsExactly(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "20190304.data")
	bf, err := buffile.Create(filePath)
	require.Nil(t, err)

	off, err := bf.Append([]byte("AAA"))
	require.Nil(t, err)
	assert.Equal(t, int64(0), off)
	off, err = bf.Append([]byte("BBBB"))
	require.Nil(t, err)
	assert.Equal(t, int64(3), off)
	assert.Equal(t, int64(7), bf.Size())

	// in-place overwrite inside the buffered region
	_, err = bf.WriteAt([]byte("C"), 1)
	require.Nil(t, err)

	// reads see pending writes
	got := make([]byte, 7)
	_, err = bf.ReadAt(got, 0)
	require.Nil(t, err)
	assert.Equal(t, []byte("ACABBBB"), got)

	big := bytes.Repeat([]byte{'z'}, buffile.DefaultBlockSize+10)
	off, err = bf.Append(big)
	require.Nil(t, err)
	assert.Equal(t, int64(7), off)

	require.Nil(t, bf.Sync())
	require.Nil(t, bf.Close())

	raw, err := os.ReadFile(filePath)
	require.Nil(t, err)
	assert.Len(t, raw, 7+len(big))
	assert.Equal(t, []byte("ACABBBB"), raw[:7])
	assert.Equal(t, big, raw[7:])
}

func TestNewMissingFile(t *testing.T) {
	_, err := buffile.New(filepath.Join(t.TempDir(), "missing"))
	assert.NotNil(t, err)
}
