// Package compress wraps the block compressors a chunk payload may be
// stored with.  Every format carries its own magic number so a payload
// can be identified without its aux record.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Kind values are stored in the aux record of each chunk and must not
// be renumbered.
type Kind int32

const (
	None Kind = iota
	Gzip
	Bzip2
	Zstd
	LZ4
)

// ErrNotSmaller is returned by Compress when the result would not be
// strictly smaller than the input.
var ErrNotSmaller = errors.New("compressed form is not smaller")

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	}
	return fmt.Sprintf("unknown(%d)", int32(k))
}

func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "bzip2", "bz2":
		return Bzip2, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	}
	return None, fmt.Errorf("unknown compression kind: %q", name)
}

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4   = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect identifies the format of data by its leading magic bytes.
func Detect(data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return Gzip
	case bytes.HasPrefix(data, magicZstd):
		return Zstd
	case bytes.HasPrefix(data, magicLZ4):
		return LZ4
	case len(data) >= 4 && bytes.HasPrefix(data, magicBzip2) && data[3] >= '1' && data[3] <= '9':
		return Bzip2
	}
	return None
}

func IsCompressed(data []byte) bool {
	return Detect(data) != None
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress returns data compressed with kind.  ErrNotSmaller is
// returned when that would not save space, and callers store the raw
// bytes instead.  None returns data unchanged.
func Compress(kind Kind, data []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch kind {
	case None:
		return data, nil
	case Gzip:
		out, err = streamCompress(data, func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.DefaultCompression)
		})
	case Bzip2:
		out, err = streamCompress(data, func(w io.Writer) (io.WriteCloser, error) {
			return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		})
	case Zstd:
		out = zstdEncoder.EncodeAll(data, nil)
	case LZ4:
		out, err = streamCompress(data, func(w io.Writer) (io.WriteCloser, error) {
			return lz4.NewWriter(w), nil
		})
	default:
		return nil, fmt.Errorf("unsupported compression kind: %v", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%v compress: %w", kind, err)
	}
	if len(out) >= len(data) {
		return nil, ErrNotSmaller
	}
	return out, nil
}

func streamCompress(data []byte, open func(io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	var buf bytes.Buffer
	w, err := open(&buf)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress detects the format of data and expands it.  Data that is
// not compressed is returned unchanged along with None.
func Decompress(data []byte) ([]byte, Kind, error) {
	kind := Detect(data)
	out, err := DecompressKind(kind, data)
	return out, kind, err
}

// DecompressKind expands data known to be compressed with kind.
func DecompressKind(kind Kind, data []byte) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	switch kind {
	case None:
		return data, nil
	case Gzip:
		var gr *gzip.Reader
		if gr, err = gzip.NewReader(bytes.NewReader(data)); err == nil {
			defer gr.Close()
			r = gr
		}
	case Bzip2:
		var br *bzip2.Reader
		if br, err = bzip2.NewReader(bytes.NewReader(data), nil); err == nil {
			defer br.Close()
			r = br
		}
	case Zstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case LZ4:
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported compression kind: %v", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%v decompress: %w", kind, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%v decompress: %w", kind, err)
	}
	return out, nil
}
