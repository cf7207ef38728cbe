// Package buffile batches the small payload writes a commit makes to a
// day's data file.  Appends and in-place overwrites land in a
// block-sized in-memory buffer and reach the file on Flush, Sync or
// Close.
package buffile

import (
	"errors"
	"io"
	"os"

	"github.com/alpacahq/chunkstore/utils/log"
)

type fileLike interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type syncer interface {
	Sync() error
}

// BufferedFile abstracts a file with a block-sized buffer to group
// writes that are likely consecutive.  It tracks the logical file size
// so writes past the end grow the file exactly, never by a padded
// block.  This object does not provide any mean of concurrency
// guarantee.
type BufferedFile struct {
	fp           fileLike
	blockSize    int
	buffer       []byte
	bufferOffset int64
	dirty        bool
	size         int64
}

const DefaultBlockSize = 32 * 1024

// New opens an existing file for buffered read/write.
func New(filePath string) (*BufferedFile, error) {
	fp, err := os.OpenFile(filePath, os.O_RDWR, 0o664)
	if err != nil {
		return nil, err
	}
	st, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, err
	}
	return newBufferedFile(fp, st.Size()), nil
}

// Create makes an empty file at filePath, truncating any existing one.
func Create(filePath string) (*BufferedFile, error) {
	fp, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o664)
	if err != nil {
		return nil, err
	}
	return newBufferedFile(fp, 0), nil
}

func newBufferedFile(fp fileLike, size int64) *BufferedFile {
	return &BufferedFile{
		fp:        fp,
		blockSize: DefaultBlockSize,
		size:      size,
	}
}

// Size is the logical size including writes not yet flushed.
func (f *BufferedFile) Size() int64 {
	return f.size
}

// Close writes any pending buffer and closes the file.  A failed
// buffer write is returned ahead of the close error.
func (f *BufferedFile) Close() error {
	err := f.writeBuffer()
	if err != nil {
		log.Error("failed to write buffer before closing. err=" + err.Error())
	}
	if cerr := f.fp.Close(); err == nil {
		err = cerr
	}
	return err
}

// Flush writes buffered data to the file without syncing.
func (f *BufferedFile) Flush() error {
	return f.writeBuffer()
}

// Sync flushes and then fsyncs when the underlying file supports it.
func (f *BufferedFile) Sync() error {
	if err := f.writeBuffer(); err != nil {
		return err
	}
	if s, ok := f.fp.(syncer); ok {
		return s.Sync()
	}
	return nil
}

func (f *BufferedFile) readBuffer(offset int64, size int) error {
	// we always read from block boundary
	readOffset := offset - offset%int64(f.blockSize)

	// read size is block lower + offset residual + actual size
	readSize := int(offset%int64(f.blockSize)) + size
	// align to block size
	readSize += f.blockSize
	readSize -= readSize % f.blockSize

	if cap(f.buffer) < readSize {
		f.buffer = make([]byte, readSize)
	}
	f.buffer = f.buffer[:readSize]
	n, err := f.fp.ReadAt(f.buffer, readOffset)
	if err != nil && !errors.Is(err, io.EOF) {
		f.buffer = nil
		return err
	}
	// past the end of file reads as zeros
	for i := n; i < readSize; i++ {
		f.buffer[i] = 0
	}
	f.bufferOffset = readOffset
	f.dirty = false
	return nil
}

func (f *BufferedFile) writeBuffer() error {
	if f.buffer == nil || !f.dirty {
		return nil
	}
	end := int64(len(f.buffer))
	if f.size-f.bufferOffset < end {
		end = f.size - f.bufferOffset
	}
	if end > 0 {
		if _, err := f.fp.WriteAt(f.buffer[:end], f.bufferOffset); err != nil {
			return err
		}
	}
	f.dirty = false
	return nil
}

func (f *BufferedFile) ensureBuffer(data []byte, offset int64) error {
	if f.buffer == nil {
		return f.readBuffer(offset, len(data))
	}
	bufferLower := f.bufferOffset
	bufferUpper := f.bufferOffset + int64(len(f.buffer))
	if offset < bufferLower || offset+int64(len(data)) > bufferUpper {
		if err := f.writeBuffer(); err != nil {
			return err
		}
		if err := f.readBuffer(offset, len(data)); err != nil {
			return err
		}
	}
	return nil
}

// WriteAt writes the data at offset from the beginning of the file.  Upon the
// return from this call, the data does not reach to disk yet.  Make sure to
// flush or close BufferedFile f to write the data on disk.
func (f *BufferedFile) WriteAt(data []byte, offset int64) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) > f.blockSize {
		// larger than a block, bypass the buffer
		if err := f.writeBuffer(); err != nil {
			return 0, err
		}
		f.buffer = nil
		n, err := f.fp.WriteAt(data, offset)
		f.grow(offset + int64(n))
		return n, err
	}
	if err := f.ensureBuffer(data, offset); err != nil {
		return 0, err
	}
	writePos := offset - f.bufferOffset
	n := copy(f.buffer[writePos:], data)
	f.dirty = true
	f.grow(offset + int64(n))
	return n, nil
}

// Append writes data at the current logical end of file and returns
// the offset it was written at.
func (f *BufferedFile) Append(data []byte) (int64, error) {
	offset := f.size
	_, err := f.WriteAt(data, offset)
	return offset, err
}

// ReadAt reads through the buffer: pending writes are flushed first.
func (f *BufferedFile) ReadAt(p []byte, offset int64) (int, error) {
	if err := f.writeBuffer(); err != nil {
		return 0, err
	}
	return f.fp.ReadAt(p, offset)
}

func (f *BufferedFile) grow(end int64) {
	if end > f.size {
		f.size = end
	}
}
