package io

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/alpacahq/chunkstore/utils"
)

const (
	MajorVersion = 1
	MinorVersion = 0

	LabelLen   = 64
	HeaderSize = 224 + utils.MinsInDay*4

	// NoPosition marks an undefined minute bucket.
	NoPosition = int32(-1)
)

var be = binary.BigEndian

// Header is the in-memory form of the fixed block at the start of an
// index file.  Integers are stored big-endian, the label is raw ASCII.
//
//	offset  field
//	0       Label [64]byte
//	64      MajorVersion, MinorVersion, ProdID, NChunks      int32
//	80      NBytesFrag, NBytesData, MaxDuration              int64
//	104     StartOfDay, EndOfDay, StartValid, EndValid,
//	        LatestExpire, EarliestValid                      int64
//	152     LeadTimeStorage, spare                           int32
//	160     spare [8]int64
//	224     MinutePosn [1440]int32
type Header struct {
	Label           [LabelLen]byte
	MajorVersion    int32
	MinorVersion    int32
	ProdID          int32
	NChunks         int32
	NBytesFrag      int64
	NBytesData      int64
	MaxDuration     int64
	StartOfDay      int64
	EndOfDay        int64
	StartValid      int64
	EndValid        int64
	LatestExpire    int64
	EarliestValid   int64
	LeadTimeStorage int32
	MinutePosn      [utils.MinsInDay]int32
}

// NewHeader returns an empty header for the day holding dayTime.  The
// valid/expire ranges start inverted so the first chunk sets them.
func NewHeader(dayTime int64, prodID int32, label string) *Header {
	h := &Header{
		MajorVersion: MajorVersion,
		MinorVersion: MinorVersion,
		ProdID:       prodID,
	}
	h.SetLabel(label)
	h.StartOfDay = utils.DayStart(dayTime)
	h.EndOfDay = h.StartOfDay + utils.SecsInDay - 1
	h.StartValid = h.EndOfDay
	h.EndValid = h.StartOfDay
	h.LatestExpire = h.StartOfDay
	h.EarliestValid = h.EndOfDay
	for i := range h.MinutePosn {
		h.MinutePosn[i] = NoPosition
	}
	return h
}

func (h *Header) SetLabel(label string) {
	h.Label = [LabelLen]byte{}
	// keep a trailing NUL
	if len(label) > LabelLen-1 {
		label = label[:LabelLen-1]
	}
	copy(h.Label[:], label)
}

func (h *Header) LabelString() string {
	return string(bytes.TrimRight(h.Label[:], "\x00"))
}

// MarshalBinary never fails; the error is there for encoding.BinaryMarshaler.
func (h *Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	copy(b[:LabelLen], h.Label[:])
	be.PutUint32(b[64:], uint32(h.MajorVersion))
	be.PutUint32(b[68:], uint32(h.MinorVersion))
	be.PutUint32(b[72:], uint32(h.ProdID))
	be.PutUint32(b[76:], uint32(h.NChunks))
	be.PutUint64(b[80:], uint64(h.NBytesFrag))
	be.PutUint64(b[88:], uint64(h.NBytesData))
	be.PutUint64(b[96:], uint64(h.MaxDuration))
	be.PutUint64(b[104:], uint64(h.StartOfDay))
	be.PutUint64(b[112:], uint64(h.EndOfDay))
	be.PutUint64(b[120:], uint64(h.StartValid))
	be.PutUint64(b[128:], uint64(h.EndValid))
	be.PutUint64(b[136:], uint64(h.LatestExpire))
	be.PutUint64(b[144:], uint64(h.EarliestValid))
	be.PutUint32(b[152:], uint32(h.LeadTimeStorage))
	for i, p := range h.MinutePosn {
		be.PutUint32(b[224+i*4:], uint32(p))
	}
	return b, nil
}

func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return ShortReadError(fmt.Sprintf("header: %d of %d bytes", len(b), HeaderSize))
	}
	copy(h.Label[:], b[:LabelLen])
	h.MajorVersion = int32(be.Uint32(b[64:]))
	h.MinorVersion = int32(be.Uint32(b[68:]))
	h.ProdID = int32(be.Uint32(b[72:]))
	h.NChunks = int32(be.Uint32(b[76:]))
	h.NBytesFrag = int64(be.Uint64(b[80:]))
	h.NBytesData = int64(be.Uint64(b[88:]))
	h.MaxDuration = int64(be.Uint64(b[96:]))
	h.StartOfDay = int64(be.Uint64(b[104:]))
	h.EndOfDay = int64(be.Uint64(b[112:]))
	h.StartValid = int64(be.Uint64(b[120:]))
	h.EndValid = int64(be.Uint64(b[128:]))
	h.LatestExpire = int64(be.Uint64(b[136:]))
	h.EarliestValid = int64(be.Uint64(b[144:]))
	h.LeadTimeStorage = int32(be.Uint32(b[152:]))
	for i := range h.MinutePosn {
		h.MinutePosn[i] = int32(be.Uint32(b[224+i*4:]))
	}
	if h.NChunks < 0 {
		return fmt.Errorf("header: negative chunk count %d", h.NChunks)
	}
	return nil
}

type ShortReadError string

func (msg ShortReadError) Error() string {
	return fmt.Sprintf("%s: Unexpectedly short read", string(msg))
}
