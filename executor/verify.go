package executor

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/lock"
)

// Problem is one inconsistency found in a day file pair.
type Problem struct {
	Path string
	Msg  string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Msg
}

// Verify checks every day file pair of dir under the read lock.
func (s *Store) Verify(dir string) (problems []Problem, err error) {
	s.beginCall("Verify", dir)
	defer s.endCall("verify", time.Now(), &err)

	if !dirExists(s.path) {
		return nil, catalog.NotFoundError(s.path)
	}
	err = s.withLock(lock.Read, func() error {
		cat, err := s.catalog()
		if err != nil {
			return err
		}
		for _, df := range cat.Days() {
			p, err := VerifyDay(df)
			if err != nil {
				return err
			}
			problems = append(problems, p...)
		}
		return nil
	})
	return problems, err
}

// VerifyDay checks one day file pair: reference order, the minute
// table, data offsets and byte accounting.
func VerifyDay(df catalog.DayFiles) ([]Problem, error) {
	x, err := readIndexFile(df.IndexPath)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(df.DataPath)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: df.DataPath, Err: err}
	}
	var problems []Problem
	report := func(format string, args ...interface{}) {
		problems = append(problems, Problem{Path: df.IndexPath, Msg: fmt.Sprintf(format, args...)})
	}

	h := x.Header
	if x.Truncated {
		report("index holds %d references, header declared more", len(x.Refs))
	}
	if h.StartOfDay != df.Start {
		report("header day start %d does not match file name", h.StartOfDay)
	}

	var live int64
	for i := range x.Refs {
		ref := &x.Refs[i]
		live += int64(ref.Len)
		if ref.ValidTime < h.StartOfDay || ref.ValidTime > h.EndOfDay {
			report("ref %d: valid time %d outside the day", i, ref.ValidTime)
		}
		if i > 0 && ref.ValidTime < x.Refs[i-1].ValidTime {
			report("ref %d: valid time %d before previous %d", i, ref.ValidTime, x.Refs[i-1].ValidTime)
		}
		if end := int64(ref.Offset) + int64(ref.Len); end > st.Size() {
			report("ref %d: data [%d, %d) past end of data file (%d bytes)", i, ref.Offset, end, st.Size())
		}
	}

	first := map[int]int{}
	for i := len(x.Refs) - 1; i >= 0; i-- {
		if v := x.Refs[i].ValidTime; v >= h.StartOfDay && v <= h.EndOfDay {
			first[utils.MinuteOfDay(v)] = i
		}
	}
	for m, p := range h.MinutePosn {
		want, ok := first[m]
		switch {
		case !ok && p != io.NoPosition:
			report("minute %d: points at %d but holds no reference", m, p)
		case ok && int(p) != want:
			report("minute %d: points at %d, first reference is %d", m, p, want)
		}
	}

	order := make([]int, len(x.Refs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return x.Refs[order[a]].Offset < x.Refs[order[b]].Offset })
	for k := 1; k < len(order); k++ {
		prev, cur := &x.Refs[order[k-1]], &x.Refs[order[k]]
		if prev.Len > 0 && cur.Len > 0 && int64(prev.Offset)+int64(prev.Len) > int64(cur.Offset) {
			report("refs %d and %d overlap in the data file", order[k-1], order[k])
		}
	}

	if live != h.NBytesData {
		report("header counts %d data bytes, references hold %d", h.NBytesData, live)
	}
	if h.NBytesData+h.NBytesFrag != st.Size() {
		report("data %d + fragmented %d bytes != data file size %d", h.NBytesData, h.NBytesFrag, st.Size())
	}
	return problems, nil
}
