package executor

import (
	"os"
	"time"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/executor/buffile"
	"github.com/alpacahq/chunkstore/metrics"
	"github.com/alpacahq/chunkstore/utils/lock"
	"github.com/alpacahq/chunkstore/utils/log"
)

const (
	defragMinBytes      = 10000
	defragMinFraction   = 0.05
	defragForceFraction = 0.3
)

// needsDefrag applies the compaction trigger: enough fragmented bytes
// that are also a noticeable fraction of the live data, or a large
// fraction whatever the size.
func needsDefrag(frag, data int64) bool {
	if frag <= 0 {
		return false
	}
	if data <= 0 {
		return true
	}
	fract := float64(frag) / float64(data)
	if (frag < defragMinBytes || fract < defragMinFraction) && fract < defragForceFraction {
		return false
	}
	return true
}

// defragDay copies every live chunk, in reference order, into a fresh
// data file and renames it over the old one.  Offsets are updated in
// memory only; the index is written by the caller.
func (s *Store) defragDay(d *dayFile) (int64, error) {
	tmpPath := d.dataPath + ".defrag"
	out, err := buffile.Create(tmpPath)
	if err != nil {
		return 0, &IOError{Op: "create", Path: tmpPath, Err: err}
	}
	fail := func(err error) (int64, error) {
		out.Close()
		os.Remove(tmpPath)
		return 0, err
	}

	oldSize := d.w.Size()
	offsets := make([]uint32, len(d.refs))
	for i := range d.refs {
		b, err := d.readData(&d.refs[i])
		if err != nil {
			return fail(err)
		}
		off, err := out.Append(b)
		if err != nil {
			return fail(&IOError{Op: "write", Path: tmpPath, Err: err})
		}
		offsets[i] = uint32(off)
	}
	newSize := out.Size()
	if err := out.Sync(); err != nil {
		return fail(&IOError{Op: "sync", Path: tmpPath, Err: err})
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, &IOError{Op: "close", Path: tmpPath, Err: err}
	}

	if err := d.w.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, &IOError{Op: "close", Path: d.dataPath, Err: err}
	}
	d.w = nil
	if err := os.Rename(tmpPath, d.dataPath); err != nil {
		os.Remove(tmpPath)
		return 0, &IOError{Op: "rename", Path: tmpPath, Err: err}
	}
	if d.w, err = buffile.New(d.dataPath); err != nil {
		return 0, &IOError{Op: "open", Path: d.dataPath, Err: err}
	}

	for i := range d.refs {
		d.refs[i].Offset = offsets[i]
	}
	d.hdr.NBytesFrag = 0
	d.hdr.NBytesData = newSize

	reclaimed := oldSize - newSize
	log.Debug("defragmented %s: %d -> %d bytes", d.dataPath, oldSize, newSize)
	metrics.DefragTotal.Inc()
	metrics.DefragReclaimedBytes.Add(float64(reclaimed))
	return reclaimed, nil
}

// Defrag compacts the data file of the day holding t if it has any
// fragmentation, whatever the trigger says.  It returns the number of
// bytes reclaimed.
func (s *Store) Defrag(dir string, t time.Time) (reclaimed int64, err error) {
	s.beginCall("Defrag", dir)
	defer s.endCall("defrag", time.Now(), &err)

	if !fileExists(catalog.IndexPath(s.path, t.Unix())) {
		return 0, nil
	}
	err = s.withLock(lock.Write, func() error {
		res := s.checkOpen(0, "", t.Unix(), lock.Write)
		if res.status != dayOpened {
			return res.err
		}
		if res.day.hdr.NBytesFrag <= 0 {
			return nil
		}
		n, err := s.defragDay(res.day)
		if err != nil {
			return err
		}
		reclaimed = n
		// no fragmentation is left, so closing only writes the index
		return s.closeDay(true)
	})
	return reclaimed, err
}
