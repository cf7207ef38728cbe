package executor

import (
	"fmt"

	"github.com/alpacahq/chunkstore/utils/io"
)

// ConfigurationError is returned when a day file belongs to another
// product.
type ConfigurationError string

func (msg ConfigurationError) Error() string {
	return errReport("%s: Product id does not match the day file", string(msg))
}

// DuplicateChunkError fails a put in once mode.
type DuplicateChunkError string

func (msg DuplicateChunkError) Error() string {
	return errReport("%s: Chunk already stored at this time and type", string(msg))
}

// CompressionFailure is recorded as a warning; the raw bytes are
// returned for the chunk concerned.
type CompressionFailure string

func (msg CompressionFailure) Error() string {
	return errReport("%s: Cannot uncompress chunk", string(msg))
}

// CorruptIndexWarning is recorded when an index holds fewer refs than
// its header declares.  The count is lowered and healed on next write.
type CorruptIndexWarning string

func (msg CorruptIndexWarning) Error() string {
	return errReport("%s: Index shorter than declared chunk count", string(msg))
}

type MissingDataError string

func (msg MissingDataError) Error() string {
	return errReport("%s: Staged chunk has a length but no data", string(msg))
}

// IOError wraps an open/read/write/seek failure on a day file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// LockError is returned when the directory lock cannot be taken.
type LockError struct {
	Dir  string
	Mode string
	Err  error
}

func (e *LockError) Error() string {
	return "cannot " + e.Mode + "-lock " + e.Dir + ": " + e.Err.Error()
}

func (e *LockError) Unwrap() error { return e.Err }

// MissingTimesError is returned by GetTimes when every chunk was
// written after the write time ceiling.
type MissingTimesError struct {
	Dir     string
	Ceiling int64
}

func (e *MissingTimesError) Error() string {
	return fmt.Sprintf("%s: no data written before %d", e.Dir, e.Ceiling)
}

func errReport(base string, msg string) string {
	base = io.GetCallerFileContext(2) + ":" + base
	return fmt.Sprintf(base, msg)
}
