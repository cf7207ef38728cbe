package executor

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/metrics"
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/compress"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/ldata"
	"github.com/alpacahq/chunkstore/utils/lock"
	"github.com/alpacahq/chunkstore/utils/log"
)

// Every get returns the matching chunks in valid time order, each with
// its own copy of the payload.  A directory that does not exist holds
// no chunks.  Zero data types are wildcards unless zero types are
// respected, see TypeMatch.

// GetExact returns the chunks valid at exactly t.
func (s *Store) GetExact(dir string, t time.Time, dataType, dataType2 int32) ([]Chunk, error) {
	f := s.getFilter(dataType, dataType2)
	return s.get("GetExact", "get_exact", dir, func() error {
		_, err := s.fetchExact(t.Unix(), f)
		return err
	})
}

// GetClosest returns the chunks nearest to t within margin.  Chunks
// exactly at t win; otherwise on equal distance the later ones do.
// A negative margin searches the whole store.
func (s *Store) GetClosest(dir string, t time.Time, margin time.Duration, dataType, dataType2 int32) ([]Chunk, error) {
	f := s.getFilter(dataType, dataType2)
	return s.get("GetClosest", "get_closest", dir, func() error {
		req := t.Unix()
		if found, err := s.fetchExact(req, f); err != nil || found {
			return err
		}
		lo, hi, ok, err := s.searchBounds(req, margin)
		if err != nil || !ok {
			return err
		}
		before, bok, err := s.findBefore(req, lo, f)
		if err != nil {
			return err
		}
		after, aok, err := s.findAfter(req, hi, f)
		if err != nil {
			return err
		}
		switch {
		case aok && (!bok || after-req <= req-before):
			_, err = s.fetchExact(after, f)
		case bok:
			_, err = s.fetchExact(before, f)
		}
		return err
	})
}

// GetFirstBefore returns the chunks at the latest time at or before t,
// no earlier than t-margin.
func (s *Store) GetFirstBefore(dir string, t time.Time, margin time.Duration, dataType, dataType2 int32) ([]Chunk, error) {
	f := s.getFilter(dataType, dataType2)
	return s.get("GetFirstBefore", "get_first_before", dir, func() error {
		req := t.Unix()
		lo, _, ok, err := s.searchBounds(req, margin)
		if err != nil || !ok {
			return err
		}
		found, ok, err := s.findBefore(req, lo, f)
		if err != nil || !ok {
			return err
		}
		_, err = s.fetchExact(found, f)
		return err
	})
}

// GetFirstAfter returns the chunks at the earliest time at or after t,
// no later than t+margin.
func (s *Store) GetFirstAfter(dir string, t time.Time, margin time.Duration, dataType, dataType2 int32) ([]Chunk, error) {
	f := s.getFilter(dataType, dataType2)
	return s.get("GetFirstAfter", "get_first_after", dir, func() error {
		req := t.Unix()
		_, hi, ok, err := s.searchBounds(req, margin)
		if err != nil || !ok {
			return err
		}
		found, ok, err := s.findAfter(req, hi, f)
		if err != nil || !ok {
			return err
		}
		_, err = s.fetchExact(found, f)
		return err
	})
}

// GetInterval returns the chunks valid in [start, end].
func (s *Store) GetInterval(dir string, start, end time.Time, dataType, dataType2 int32) ([]Chunk, error) {
	f := s.getFilter(dataType, dataType2)
	return s.get("GetInterval", "get_interval", dir, func() error {
		return s.fetchInterval(start.Unix(), end.Unix(), f, nil)
	})
}

// GetValid returns the chunks whose validity [valid, expire] holds t.
func (s *Store) GetValid(dir string, t time.Time, dataType, dataType2 int32) ([]Chunk, error) {
	f := s.getFilter(dataType, dataType2)
	return s.get("GetValid", "get_valid", dir, func() error {
		req := t.Unix()
		res := s.checkOpen(0, "", req, lock.Read)
		switch res.status {
		case dayEmpty:
			return nil
		case dayOpenFailed:
			return res.err
		}
		first, last, ok, err := s.firstAndLast()
		if err != nil || !ok {
			return err
		}
		start := res.day.hdr.EarliestValid
		if start < first {
			start = first
		}
		end := req
		if end > last {
			end = last
		}
		return s.fetchInterval(start, end, f, func(ref *io.ChunkRef) bool {
			return ref.ValidTime <= req && req <= ref.ExpireTime
		})
	})
}

// GetLatest returns the chunks within margin of the latest valid time.
// The latest time comes from the latest-data marker when it is usable
// and from the day files otherwise.  With data types given it is the
// time of the last matching chunk in the day before it.
func (s *Store) GetLatest(dir string, margin time.Duration, dataType, dataType2 int32) ([]Chunk, error) {
	f := s.getFilter(dataType, dataType2)
	return s.get("GetLatest", "get_latest", dir, func() error {
		latest, ok, err := s.lastValid(f)
		if err != nil || !ok {
			return err
		}
		m := int64(margin / time.Second)
		if m < 0 {
			m = 0
		}
		return s.fetchInterval(latest-m, latest+m, f, nil)
	})
}

// GetTimes returns the first and last valid times stored and the
// latest valid time.  Under a write time ceiling the times are clamped
// to it, and a store with nothing before it is an error.
func (s *Store) GetTimes(dir string) (times Times, err error) {
	s.beginCall("GetTimes", dir)
	defer s.endCall("get_times", time.Now(), &err)
	if !dirExists(s.path) {
		return times, nil
	}
	err = s.withLock(lock.Read, func() error {
		first, last, ok, err := s.firstAndLast()
		if err != nil || !ok {
			return err
		}
		lastValid, _, err := s.lastValid(typeFilter{})
		if err != nil {
			return err
		}
		if s.checkWriteTime {
			ceiling := s.latestValidWriteTime
			if first > ceiling {
				return &MissingTimesError{Dir: s.path, Ceiling: ceiling}
			}
			if last > ceiling {
				last = ceiling
			}
			if lastValid > ceiling {
				lastValid = ceiling
			}
		}
		times = Times{First: utils.Unix(first), Last: utils.Unix(last), LastValid: utils.Unix(lastValid)}
		return nil
	})
	return times, err
}

// CompileTimeList returns the distinct valid times in [start, end],
// skipping any closer than minInterval to the last time kept.  A zero
// minInterval keeps duplicates.
func (s *Store) CompileTimeList(dir string, start, end time.Time, minInterval time.Duration) (list []time.Time, err error) {
	s.beginCall("CompileTimeList", dir)
	defer s.endCall("compile_time_list", time.Now(), &err)
	if !dirExists(s.path) {
		return nil, nil
	}
	step := int64(minInterval / time.Second)
	err = s.withLock(lock.Read, func() error {
		cat, err := s.catalog()
		if err != nil {
			return err
		}
		lo, hi := start.Unix(), end.Unix()
		var lastAdded int64
		added := false
		ceiling := typeFilter{checkWrite: s.checkWriteTime, ceiling: s.latestValidWriteTime}
		for _, df := range cat.DaysBetween(lo, hi) {
			res := openDay(s.path, df.Start, s.openOptions(0, "", lock.Read, false))
			if res.status == dayOpenFailed {
				return res.err
			}
			if res.status == dayEmpty {
				continue
			}
			d := res.day
			for i := range d.refs {
				v := d.refs[i].ValidTime
				if v < lo || v > hi || !ceiling.accept(&d.refs[i], &d.aux[i]) {
					continue
				}
				if !added || v-lastAdded >= step {
					list = append(list, utils.Unix(v))
					lastAdded = v
					added = true
				}
			}
		}
		return nil
	})
	return list, err
}

// get runs fn under the read lock and hands back what it collected.
func (s *Store) get(name, method, dir string, fn func() error) (chunks []Chunk, err error) {
	s.beginCall(name, dir)
	defer s.endCall(method, time.Now(), &err)
	s.chunks = nil
	if !dirExists(s.path) {
		return nil, nil
	}
	if err = s.withLock(lock.Read, fn); err != nil {
		s.chunks = nil
		return nil, err
	}
	switch s.unique {
	case UniqueLatest:
		s.chunks = MakeUniqueLatest(s.chunks)
	case UniqueEarliest:
		s.chunks = MakeUniqueEarliest(s.chunks)
	}
	chunks, s.chunks = s.chunks, nil
	metrics.ChunksRead.Add(float64(len(chunks)))
	return chunks, nil
}

// openForRead opens the day holding t.  A day without files reports
// false and no error.
func (s *Store) openForRead(t int64) (*dayFile, bool, error) {
	res := s.checkOpen(0, "", t, lock.Read)
	switch res.status {
	case dayEmpty:
		return nil, false, nil
	case dayOpenFailed:
		return nil, false, res.err
	}
	return res.day, true, nil
}

// fetchExact collects the accepted chunks valid at t.
func (s *Store) fetchExact(t int64, f typeFilter) (bool, error) {
	d, ok, err := s.openForRead(t)
	if err != nil || !ok {
		return false, err
	}
	pos := d.posnAtTime(t, f)
	if pos < 0 {
		return false, nil
	}
	found := false
	for i := pos; i < len(d.refs) && d.refs[i].ValidTime == t; i++ {
		if !f.accept(&d.refs[i], &d.aux[i]) {
			continue
		}
		if err := s.collect(d, i); err != nil {
			return found, err
		}
		found = true
	}
	return found, nil
}

// fetchInterval collects the accepted chunks valid in [start, end]
// that keep also passes, walking the days the store holds.
func (s *Store) fetchInterval(start, end int64, f typeFilter, keep func(*io.ChunkRef) bool) error {
	first, last, ok, err := s.firstAndLast()
	if err != nil || !ok {
		return err
	}
	if start < first {
		start = first
	}
	if end > last {
		end = last
	}
	if start > end {
		return nil
	}
	for _, df := range s.cat.DaysBetween(start, end) {
		d, ok, err := s.openForRead(df.Start)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		pos := d.firstPosnAfter(start)
		if pos < 0 {
			continue
		}
		for i := pos; i < len(d.refs) && d.refs[i].ValidTime <= end; i++ {
			if !f.accept(&d.refs[i], &d.aux[i]) || (keep != nil && !keep(&d.refs[i])) {
				continue
			}
			if err := s.collect(d, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// findBefore returns the valid time of the last accepted chunk in
// [lo, t].
func (s *Store) findBefore(t, lo int64, f typeFilter) (int64, bool, error) {
	cat, err := s.catalog()
	if err != nil {
		return 0, false, err
	}
	days := cat.DaysBetween(lo, t)
	for k := len(days) - 1; k >= 0; k-- {
		d, ok, err := s.openForRead(days[k].Start)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue
		}
		for i := d.lastPosnBefore(t); i >= 0 && d.refs[i].ValidTime >= lo; i-- {
			if f.accept(&d.refs[i], &d.aux[i]) {
				return d.refs[i].ValidTime, true, nil
			}
		}
	}
	return 0, false, nil
}

// findAfter returns the valid time of the first accepted chunk in
// [t, hi].
func (s *Store) findAfter(t, hi int64, f typeFilter) (int64, bool, error) {
	cat, err := s.catalog()
	if err != nil {
		return 0, false, err
	}
	for _, df := range cat.DaysBetween(t, hi) {
		d, ok, err := s.openForRead(df.Start)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue
		}
		pos := d.firstPosnAfter(t)
		for i := pos; i >= 0 && i < len(d.refs) && d.refs[i].ValidTime <= hi; i++ {
			if f.accept(&d.refs[i], &d.aux[i]) {
				return d.refs[i].ValidTime, true, nil
			}
		}
	}
	return 0, false, nil
}

// searchBounds turns a margin around t into a search window.  A
// negative margin opens the window to the store's first and last
// times.
func (s *Store) searchBounds(t int64, margin time.Duration) (lo, hi int64, ok bool, err error) {
	if margin >= 0 {
		m := int64(margin / time.Second)
		return t - m, t + m, true, nil
	}
	return s.firstAndLast()
}

// firstAndLast returns the first valid time of the earliest day with
// chunks and the last valid time of the latest one.
func (s *Store) firstAndLast() (first, last int64, ok bool, err error) {
	cat, err := s.catalog()
	if err != nil {
		return 0, 0, false, err
	}
	firstDay, ok := cat.First()
	if !ok {
		return 0, 0, false, nil
	}
	lastDay, _ := cat.Last()
	fh, err := s.readHeader(firstDay)
	if err != nil {
		return 0, 0, false, err
	}
	lh, err := s.readHeader(lastDay)
	if err != nil {
		return 0, 0, false, err
	}
	return fh.StartValid, lh.EndValid, true, nil
}

func (s *Store) readHeader(df catalog.DayFiles) (*io.Header, error) {
	if s.day != nil && s.day.start == df.Start {
		return s.day.hdr, nil
	}
	x, err := readIndexFile(df.IndexPath)
	if err != nil {
		return nil, err
	}
	return x.Header, nil
}

// lastValid resolves the latest valid time, see GetLatest.
func (s *Store) lastValid(f typeFilter) (int64, bool, error) {
	cat, err := s.catalog()
	if err != nil {
		return 0, false, err
	}
	var latest int64
	info, err := ldata.Read(s.path)
	switch {
	case err == nil:
		latest = info.LatestValidTime()
		if latest <= 1 || !cat.Has(latest) {
			log.Debug("%s: latest data marker at %d is stale", s.path, latest)
			latest = 0
		}
	case !errors.Is(err, os.ErrNotExist):
		s.warn(err)
	}
	if latest == 0 {
		_, last, ok, err := s.firstAndLast()
		if err != nil || !ok {
			return 0, false, err
		}
		latest = last
	}
	if !f.typed() {
		return latest, true, nil
	}
	return s.findBefore(latest, latest-utils.SecsInDay, f)
}

// collect appends the chunk at pos of d to the call's result.
func (s *Store) collect(d *dayFile, pos int) error {
	ref, aux := &d.refs[pos], &d.aux[pos]
	stored := compress.Kind(aux.Compression)
	if s.refsOnly {
		s.chunks = append(s.chunks, newChunk(ref, aux, stored))
		return nil
	}
	b, err := d.readData(ref)
	if err != nil {
		return err
	}
	if d.auxMissing {
		stored = compress.Detect(b)
	}
	c := newChunk(ref, aux, stored)
	c.Data = b
	if s.uncompressOnGet {
		s.uncompress(&c)
	}
	s.chunks = append(s.chunks, c)
	return nil
}

func (s *Store) uncompress(c *Chunk) {
	if c.CurrentCompression == compress.None || c.Data == nil {
		return
	}
	out, err := compress.DecompressKind(c.CurrentCompression, c.Data)
	if err != nil {
		s.warn(CompressionFailure(c.ValidTime.UTC().Format(time.RFC3339) + ": " + err.Error()))
		return
	}
	c.Data = out
	c.CurrentCompression = compress.None
}

// UncompressChunks expands chunks fetched with uncompression on get
// turned off.  Chunks that fail to expand keep their stored bytes.
func (s *Store) UncompressChunks(chunks []Chunk) {
	for i := range chunks {
		s.uncompress(&chunks[i])
	}
}
