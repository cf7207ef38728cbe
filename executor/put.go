package executor

import (
	"bytes"
	"os"
	"sort"
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

// earliestValidLookAhead is how many following days learn about a
// chunk whose validity runs past midnight.
const earliestValidLookAhead = 3

type stagedChunk struct {
	ref  io.ChunkRef
	aux  io.AuxRef
	data []byte
}

// AddPutChunk stages one chunk for the next Put.  The payload is copied
// and, when compression on put is set, kept compressed if that makes
// it smaller.  A zero-length payload is legal.
func (s *Store) AddPutChunk(dataType, dataType2 int32, valid, expire time.Time, data []byte, tag string) {
	sc := stagedChunk{
		ref: io.ChunkRef{
			ValidTime:  valid.Unix(),
			ExpireTime: expire.Unix(),
			DataType:   dataType,
			DataType2:  dataType2,
		},
	}
	sc.aux.SetTag(tag)
	sc.data = make([]byte, len(data))
	copy(sc.data, data)

	if s.compressOnPut != compress.None && len(data) > 0 {
		packed, err := compress.Compress(s.compressOnPut, data)
		switch {
		case err == nil:
			sc.data = packed
			sc.aux.Compression = int32(s.compressOnPut)
		case errors.Is(err, compress.ErrNotSmaller):
		default:
			log.Warn("compress %s chunk at %d: %v", s.compressOnPut, sc.ref.ValidTime, err)
		}
	}
	sc.ref.Len = uint32(len(sc.data))
	s.staged = append(s.staged, sc)
}

// AddPutChunks stages chunks described by refs whose payloads sit in
// data at each ref's Offset.  Refs with a length but no payload are
// rejected with a warning.  It returns the number staged.
func (s *Store) AddPutChunks(refs []io.ChunkRef, data []byte) int {
	n := 0
	for i := range refs {
		ref := refs[i]
		end := uint64(ref.Offset) + uint64(ref.Len)
		if ref.Len > 0 && (data == nil || end > uint64(len(data))) {
			err := MissingDataError(utils.Unix(ref.ValidTime).Format(time.RFC3339))
			log.Warn("%v", err)
			continue
		}
		var payload []byte
		if ref.Len > 0 {
			payload = data[ref.Offset:end]
		}
		s.AddPutChunk(ref.DataType, ref.DataType2,
			utils.Unix(ref.ValidTime), utils.Unix(ref.ExpireTime), payload, "")
		n++
	}
	return n
}

func (s *Store) NPutChunks() int {
	return len(s.staged)
}

func (s *Store) ClearPutChunks() {
	s.staged = s.staged[:0]
}

// Put commits the staged chunks to dir under the active put mode and
// clears the stage.  Each day touched is committed on its own; a
// failure does not roll back days already written.
func (s *Store) Put(dir string, prodID int32, label string) (err error) {
	s.beginCall("Put", dir)
	defer s.endCall("put", time.Now(), &err)
	defer s.ClearPutChunks()

	if len(s.staged) == 0 {
		return nil
	}
	if err = os.MkdirAll(s.path, 0o775); err != nil {
		return &IOError{Op: "mkdir", Path: s.path, Err: err}
	}

	sort.SliceStable(s.staged, func(i, j int) bool {
		return s.staged[i].ref.ValidTime < s.staged[j].ref.ValidTime
	})

	return s.withLock(lock.Write, func() error {
		if s.putMode == utils.PutOnce {
			if err := s.checkOnce(prodID); err != nil {
				return err
			}
		}

		now := time.Now().Unix()
		// earliest valid time owed to each following day
		owed := map[int64]int64{}
		var (
			latest            int64
			maxType, maxType2 int32
			stored            int
		)
		for i := range s.staged {
			sc := &s.staged[i]
			sc.aux.WriteTime = now

			res := s.checkOpen(prodID, label, sc.ref.ValidTime, lock.Write)
			if res.status != dayOpened {
				return res.err
			}
			ok, err := s.storeChunk(res.day, sc)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			stored++
			res.day.updateStats(&sc.ref)
			s.owe(owed, &sc.ref)

			if stored == 1 || sc.ref.ValidTime > latest {
				latest = sc.ref.ValidTime
			}
			if stored == 1 || sc.ref.DataType > maxType {
				maxType = sc.ref.DataType
			}
			if stored == 1 || sc.ref.DataType2 > maxType2 {
				maxType2 = sc.ref.DataType2
			}
		}
		if err := s.closeDay(true); err != nil {
			return err
		}
		if err := s.setEarliestValid(prodID, label, owed); err != nil {
			return err
		}
		metrics.ChunksWritten.Add(float64(stored))
		s.latestValidPut = latest

		if s.writeMarker && stored > 0 {
			return s.writeLatestData(latest, maxType, maxType2)
		}
		return nil
	})
}

// checkOnce fails the batch before anything is written if any staged
// chunk is already stored, or staged twice.
func (s *Store) checkOnce(prodID int32) error {
	type key struct {
		valid     int64
		typ, typ2 int32
	}
	seen := map[key]bool{}
	var d *dayFile
	for i := range s.staged {
		ref := &s.staged[i].ref
		k := key{ref.ValidTime, ref.DataType, ref.DataType2}
		if seen[k] {
			return DuplicateChunkError(utils.Unix(ref.ValidTime).Format(time.RFC3339))
		}
		seen[k] = true

		if d == nil || d.start != utils.DayStart(ref.ValidTime) {
			res := openDay(s.path, ref.ValidTime, s.openOptions(prodID, "", lock.Read, false))
			switch res.status {
			case dayOpenFailed:
				return res.err
			case dayEmpty:
				d = &dayFile{start: utils.DayStart(ref.ValidTime), hdr: io.NewHeader(ref.ValidTime, 0, "")}
			default:
				d = res.day
			}
		}
		if d.storedPosn(ref.ValidTime, s.keyFilter(ref.DataType, ref.DataType2)) >= 0 {
			return DuplicateChunkError(utils.Unix(ref.ValidTime).Format(time.RFC3339))
		}
	}
	return nil
}

// storeChunk writes one staged chunk into d.  It reports false when
// add-unique mode skipped the chunk.
func (s *Store) storeChunk(d *dayFile, sc *stagedChunk) (bool, error) {
	ref := sc.ref
	f := s.keyFilter(ref.DataType, ref.DataType2)

	switch s.putMode {
	case utils.PutOnce:
		// checked up front by checkOnce
	case utils.PutAddUnique:
		same, err := s.checkStored(d, sc)
		if err != nil || same {
			return false, err
		}
	case utils.PutOver:
		if pos := d.storedPosn(ref.ValidTime, f); pos >= 0 {
			return true, s.overwrite(d, pos, sc)
		}
	}

	off, err := d.appendData(sc.data)
	if err != nil {
		return false, err
	}
	ref.Offset = off
	d.insert(ref, sc.aux)
	return true, nil
}

// overwrite replaces the chunk at pos.  A payload that fits goes into
// the old slot and leaves its tail as fragmentation, otherwise it is
// appended and the whole old slot is fragmented.
func (s *Store) overwrite(d *dayFile, pos int, sc *stagedChunk) error {
	old := d.refs[pos]
	ref := sc.ref
	if old.Len >= ref.Len {
		if err := d.writeDataAt(sc.data, old.Offset); err != nil {
			return err
		}
		diff := int64(old.Len - ref.Len)
		d.hdr.NBytesFrag += diff
		d.hdr.NBytesData -= diff
		ref.Offset = old.Offset
	} else {
		off, err := d.appendData(sc.data)
		if err != nil {
			return err
		}
		d.hdr.NBytesFrag += int64(old.Len)
		d.hdr.NBytesData += int64(ref.Len) - int64(old.Len)
		ref.Offset = off
	}
	d.refs[pos] = ref
	d.aux[pos] = sc.aux
	return nil
}

// checkStored reports whether a byte-identical chunk is already stored
// under the staged chunk's key.  It reads through the open write handle.
func (s *Store) checkStored(d *dayFile, sc *stagedChunk) (bool, error) {
	f := s.keyFilter(sc.ref.DataType, sc.ref.DataType2)
	pos := d.storedPosn(sc.ref.ValidTime, f)
	if pos < 0 {
		return false, nil
	}
	for i := pos; i < len(d.refs) && d.refs[i].ValidTime == sc.ref.ValidTime; i++ {
		ref := &d.refs[i]
		if ref.ExpireTime != sc.ref.ExpireTime || ref.Len != sc.ref.Len ||
			ref.DataType != sc.ref.DataType || ref.DataType2 != sc.ref.DataType2 {
			continue
		}
		b, err := d.readData(ref)
		if err != nil {
			return false, err
		}
		if bytes.Equal(b, sc.data) {
			return true, nil
		}
	}
	return false, nil
}

// owe records the earliest valid time each following day overlapped by
// ref has to learn about.
func (s *Store) owe(owed map[int64]int64, ref *io.ChunkRef) {
	validDay := utils.DayStart(ref.ValidTime)
	last := utils.DayStart(ref.ExpireTime)
	if limit := validDay + earliestValidLookAhead*utils.SecsInDay; last > limit {
		last = limit
	}
	for day := validDay + utils.SecsInDay; day <= last; day += utils.SecsInDay {
		if v, ok := owed[day]; !ok || ref.ValidTime < v {
			owed[day] = ref.ValidTime
		}
	}
}

// setEarliestValid lowers the earliest valid time in the headers of the
// days owed one, creating their files when needed.
func (s *Store) setEarliestValid(prodID int32, label string, owed map[int64]int64) error {
	days := make([]int64, 0, len(owed))
	for day := range owed {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	for _, day := range days {
		res := openDay(s.path, day+utils.SecsInDay/2, s.openOptions(prodID, label, lock.Write, false))
		if res.status != dayOpened {
			return res.err
		}
		d := res.day
		if v := owed[day]; v < d.hdr.EarliestValid {
			log.Debug("%s: earliest valid of %s lowered to %d", s.path, utils.DayName(day), v)
			d.hdr.EarliestValid = v
			if err := d.writeIndex(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) writeLatestData(latest int64, maxType, maxType2 int32) error {
	info := &ldata.Info{
		LatestTime:  latest,
		RelDataPath: utils.DayName(latest) + catalog.IndexExt,
		Writer:      s.appName,
		DataType:    "spdb",
	}
	var lead int64
	switch s.leadTimeStorage {
	case utils.LeadTimeInDataType:
		lead = int64(maxType)
	case utils.LeadTimeInDataType2:
		lead = int64(maxType2)
	}
	if s.leadTimeStorage != utils.LeadTimeNotApplicable {
		info.IsForecast = true
		info.LeadTime = lead
		info.LatestTime = latest - lead
	}
	if err := ldata.Write(s.path, info); err != nil {
		return &IOError{Op: "write", Path: s.path + "/" + ldata.FileName, Err: err}
	}
	return nil
}

// Erase removes every chunk at valid time t matching dataType and
// dataType2.  Finding nothing to erase is not an error.
func (s *Store) Erase(dir string, t time.Time, dataType, dataType2 int32) (err error) {
	s.beginCall("Erase", dir)
	defer s.endCall("erase", time.Now(), &err)

	if !dirExists(s.path) {
		return nil
	}
	return s.withLock(lock.Write, func() error {
		n, err := s.eraseChunks(t.Unix(), dataType, dataType2)
		if err == nil && n == 0 {
			log.Debug("%s: nothing to erase at %d", s.path, t.Unix())
		}
		if err != nil {
			return err
		}
		return s.closeDay(true)
	})
}

// EraseStaged erases the keys of the staged chunks, then clears them.
func (s *Store) EraseStaged(dir string) (err error) {
	s.beginCall("EraseStaged", dir)
	defer s.endCall("erase", time.Now(), &err)
	defer s.ClearPutChunks()

	if len(s.staged) == 0 || !dirExists(s.path) {
		return nil
	}
	return s.withLock(lock.Write, func() error {
		for i := range s.staged {
			ref := &s.staged[i].ref
			if _, err := s.eraseChunks(ref.ValidTime, ref.DataType, ref.DataType2); err != nil {
				return err
			}
		}
		return s.closeDay(true)
	})
}

func (s *Store) eraseChunks(t int64, dataType, dataType2 int32) (int, error) {
	if !fileExists(catalog.IndexPath(s.path, t)) {
		return 0, nil
	}
	res := s.checkOpen(0, "", t, lock.Write)
	if res.status != dayOpened {
		return 0, res.err
	}
	d := res.day
	f := s.keyFilter(dataType, dataType2)
	pos := d.posnAtTime(t, f)
	if pos < 0 {
		return 0, nil
	}
	n := 0
	for pos < len(d.refs) && d.refs[pos].ValidTime == t {
		if !f.accept(&d.refs[pos], &d.aux[pos]) {
			pos++
			continue
		}
		d.hdr.NBytesFrag += int64(d.refs[pos].Len)
		d.hdr.NBytesData -= int64(d.refs[pos].Len)
		d.remove(pos)
		n++
	}
	return n, nil
}
