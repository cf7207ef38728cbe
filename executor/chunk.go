package executor

import (
	"time"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/compress"
	"github.com/alpacahq/chunkstore/utils/io"
)

// Chunk is one stored record as returned by a get.
type Chunk struct {
	ValidTime  time.Time
	ExpireTime time.Time
	WriteTime  time.Time
	DataType   int32
	DataType2  int32
	Tag        string

	// StoredCompression is how the payload sits on disk,
	// CurrentCompression is the state of Data.
	StoredCompression  compress.Kind
	CurrentCompression compress.Kind
	// StoredLen is the on-disk payload length.
	StoredLen uint32

	// Data is nil for refs-only gets.
	Data []byte
}

func newChunk(ref *io.ChunkRef, aux *io.AuxRef, stored compress.Kind) Chunk {
	c := Chunk{
		ValidTime:          utils.Unix(ref.ValidTime),
		ExpireTime:         utils.Unix(ref.ExpireTime),
		DataType:           ref.DataType,
		DataType2:          ref.DataType2,
		Tag:                aux.TagString(),
		StoredCompression:  stored,
		CurrentCompression: stored,
		StoredLen:          ref.Len,
	}
	if aux.WriteTime != 0 {
		c.WriteTime = utils.Unix(aux.WriteTime)
	}
	return c
}

// Times is the result of GetTimes.
type Times struct {
	First     time.Time
	Last      time.Time
	LastValid time.Time
}
