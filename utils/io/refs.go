package io

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	ChunkRefSize = 32
	AuxRefSize   = 32
	TagLen       = 16
)

// ChunkRef locates one chunk payload in the data file.
type ChunkRef struct {
	ValidTime  int64
	ExpireTime int64
	DataType   int32
	DataType2  int32
	Offset     uint32
	Len        uint32
}

// AuxRef carries per-chunk metadata parallel to the ChunkRef array.
type AuxRef struct {
	WriteTime   int64
	Compression int32
	Tag         [TagLen]byte
}

func (a *AuxRef) SetTag(tag string) {
	a.Tag = [TagLen]byte{}
	if len(tag) > TagLen-1 {
		tag = tag[:TagLen-1]
	}
	copy(a.Tag[:], tag)
}

func (a *AuxRef) TagString() string {
	return string(bytes.TrimRight(a.Tag[:], "\x00"))
}

func putRef(b []byte, r *ChunkRef) {
	be.PutUint64(b[0:], uint64(r.ValidTime))
	be.PutUint64(b[8:], uint64(r.ExpireTime))
	be.PutUint32(b[16:], uint32(r.DataType))
	be.PutUint32(b[20:], uint32(r.DataType2))
	be.PutUint32(b[24:], r.Offset)
	be.PutUint32(b[28:], r.Len)
}

func getRef(b []byte) ChunkRef {
	return ChunkRef{
		ValidTime:  int64(be.Uint64(b[0:])),
		ExpireTime: int64(be.Uint64(b[8:])),
		DataType:   int32(be.Uint32(b[16:])),
		DataType2:  int32(be.Uint32(b[20:])),
		Offset:     be.Uint32(b[24:]),
		Len:        be.Uint32(b[28:]),
	}
}

func putAux(b []byte, a *AuxRef) {
	be.PutUint64(b[0:], uint64(a.WriteTime))
	be.PutUint32(b[8:], uint32(a.Compression))
	be.PutUint32(b[12:], 0)
	copy(b[16:16+TagLen], a.Tag[:])
}

func getAux(b []byte) AuxRef {
	a := AuxRef{
		WriteTime:   int64(be.Uint64(b[0:])),
		Compression: int32(be.Uint32(b[8:])),
	}
	copy(a.Tag[:], b[16:16+TagLen])
	return a
}

// IndexFile is the full content of a YYYYMMDD.indx file.
type IndexFile struct {
	Header *Header
	Refs   []ChunkRef
	Aux    []AuxRef

	// Truncated is set when fewer refs than Header.NChunks were present;
	// NChunks has been lowered to len(Refs).
	Truncated bool
	// AuxMissing is set when the file predates the aux section, or it
	// was cut short.  Aux then holds zero values.
	AuxMissing bool
}

// Size is the number of bytes WriteIndex produces.
func (x *IndexFile) Size() int64 {
	return int64(HeaderSize) + int64(len(x.Refs))*(ChunkRefSize+AuxRefSize)
}

// readBlockRefs bounds the refs ReadIndex reads at once.
const readBlockRefs = 4096

// ReadIndex decodes an index file.  An index holding fewer refs than
// its header declares is returned Truncated rather than as an error.
func ReadIndex(r io.Reader) (*IndexFile, error) {
	hb := make([]byte, HeaderSize)
	if n, err := io.ReadFull(r, hb); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ShortReadError(fmt.Sprintf("index header: %d of %d bytes", n, HeaderSize))
		}
		return nil, err
	}
	x := &IndexFile{Header: &Header{}}
	if err := x.Header.UnmarshalBinary(hb); err != nil {
		return nil, err
	}

	// refs are read in blocks so a damaged count cannot size a buffer
	want := int(x.Header.NChunks)
	block := want
	if block > readBlockRefs {
		block = readBlockRefs
	}
	rb := make([]byte, block*ChunkRefSize)
	x.Refs = make([]ChunkRef, 0, block)
	for len(x.Refs) < want {
		k := want - len(x.Refs)
		if k > block {
			k = block
		}
		n, err := io.ReadFull(r, rb[:k*ChunkRefSize])
		for i := 0; i+ChunkRefSize <= n; i += ChunkRefSize {
			x.Refs = append(x.Refs, getRef(rb[i:]))
		}
		if err != nil {
			if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
				return nil, err
			}
			break
		}
	}
	got := len(x.Refs)
	x.Aux = make([]AuxRef, got)
	if got < want {
		x.Truncated = true
		x.AuxMissing = true
		x.Header.NChunks = int32(got)
		return x, nil
	}

	ab := make([]byte, got*AuxRefSize)
	if _, err := io.ReadFull(r, ab); err != nil {
		if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		x.AuxMissing = got > 0
		return x, nil
	}
	for i := 0; i < got; i++ {
		x.Aux[i] = getAux(ab[i*AuxRefSize:])
	}
	return x, nil
}

// WriteIndex writes header, refs and aux refs.  Header.NChunks is set
// from len(x.Refs).
func WriteIndex(w io.Writer, x *IndexFile) error {
	if len(x.Aux) != len(x.Refs) {
		return fmt.Errorf("index: %d refs but %d aux refs", len(x.Refs), len(x.Aux))
	}
	x.Header.NChunks = int32(len(x.Refs))
	hb, _ := x.Header.MarshalBinary()

	b := make([]byte, x.Size())
	copy(b, hb)
	off := HeaderSize
	for i := range x.Refs {
		putRef(b[off:], &x.Refs[i])
		off += ChunkRefSize
	}
	for i := range x.Aux {
		putAux(b[off:], &x.Aux[i])
		off += AuxRefSize
	}
	_, err := w.Write(b)
	return err
}
