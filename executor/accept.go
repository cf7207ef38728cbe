package executor

import (
	"github.com/alpacahq/chunkstore/utils/io"
)

// TypeMatch reports whether a reference with the given types satisfies
// a query for qType/qType2.  Unless respectZero is set, a zero query
// type is a wildcard: qType2 == 0 matches on qType alone (or anything
// when qType is also 0), qType == 0 matches on qType2 alone.
func TypeMatch(qType, qType2 int32, respectZero bool, refType, refType2 int32) bool {
	if respectZero {
		return qType == refType && qType2 == refType2
	}
	switch {
	case qType2 == 0:
		return qType == 0 || qType == refType
	case qType == 0:
		return qType2 == refType2
	}
	return qType == refType && qType2 == refType2
}

// typeFilter is the matching rule for one call.
type typeFilter struct {
	dataType    int32
	dataType2   int32
	respectZero bool
	// ceiling rejects chunks written after it when checkWrite is set
	checkWrite bool
	ceiling    int64
}

func (f typeFilter) accept(ref *io.ChunkRef, aux *io.AuxRef) bool {
	if f.checkWrite && aux.WriteTime > f.ceiling {
		return false
	}
	return TypeMatch(f.dataType, f.dataType2, f.respectZero, ref.DataType, ref.DataType2)
}

func (f typeFilter) typed() bool {
	return f.dataType != 0 || f.dataType2 != 0
}

// getFilter applies the write-time ceiling, keyFilter is used to find
// stored chunks for puts and erases, which ignore it.
func (s *Store) getFilter(dataType, dataType2 int32) typeFilter {
	return typeFilter{
		dataType:    dataType,
		dataType2:   dataType2,
		respectZero: s.respectZeroTypes,
		checkWrite:  s.checkWriteTime,
		ceiling:     s.latestValidWriteTime,
	}
}

func (s *Store) keyFilter(dataType, dataType2 int32) typeFilter {
	return typeFilter{
		dataType:    dataType,
		dataType2:   dataType2,
		respectZero: s.respectZeroTypes,
	}
}
