package executor

import (
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/io"
)

// The reference array of a day is kept sorted by valid time, ties in
// insertion order.  MinutePosn[m] holds the position of the first
// reference inside minute m, or io.NoPosition when the minute is empty;
// lookups that land on an empty minute move forward to the next
// defined one.

func (d *dayFile) minute(t int64) int {
	switch {
	case t < d.hdr.StartOfDay:
		return 0
	case t > d.hdr.EndOfDay:
		return utils.MinsInDay - 1
	}
	return utils.MinuteOfDay(t)
}

// bucketFrom returns the first defined bucket at or after minute m.
func (d *dayFile) bucketFrom(m int) int {
	for ; m < utils.MinsInDay; m++ {
		if p := d.hdr.MinutePosn[m]; p != io.NoPosition {
			return int(p)
		}
	}
	return -1
}

// bucketBefore returns the first defined bucket at or before minute m.
func (d *dayFile) bucketBefore(m int) (int, int) {
	for ; m >= 0; m-- {
		if p := d.hdr.MinutePosn[m]; p != io.NoPosition {
			return int(p), m
		}
	}
	return -1, -1
}

// posnAtTime returns the first reference valid exactly at t that f
// accepts, or -1.
func (d *dayFile) posnAtTime(t int64, f typeFilter) int {
	if t < d.hdr.StartOfDay || t > d.hdr.EndOfDay {
		return -1
	}
	p := d.bucketFrom(utils.MinuteOfDay(t))
	if p < 0 {
		return -1
	}
	for i := p; i < len(d.refs); i++ {
		ref := &d.refs[i]
		if ref.ValidTime-t > utils.SecsInMin {
			break
		}
		if ref.ValidTime == t && f.accept(ref, &d.aux[i]) {
			return i
		}
	}
	return -1
}

// firstPosnAfter returns the first reference valid at or after t, or -1.
func (d *dayFile) firstPosnAfter(t int64) int {
	if t > d.hdr.EndOfDay {
		return -1
	}
	p := d.bucketFrom(d.minute(t))
	if p < 0 {
		return -1
	}
	for i := p; i < len(d.refs); i++ {
		if d.refs[i].ValidTime >= t {
			return i
		}
	}
	return -1
}

// lastPosnBefore returns the last reference valid at or before t, or -1.
func (d *dayFile) lastPosnBefore(t int64) int {
	if t < d.hdr.StartOfDay {
		return -1
	}
	p, m := d.bucketBefore(d.minute(t))
	if p < 0 {
		return -1
	}
	// the bucket holds the first entry of its minute; step over the
	// rest of that minute
	end := d.bucketFrom(m + 1)
	if end < 0 {
		end = len(d.refs)
	}
	for i := end - 1; i >= p; i-- {
		if d.refs[i].ValidTime <= t {
			return i
		}
	}
	// everything in minute m is after t, so the answer is before p
	if p > 0 {
		return p - 1
	}
	return -1
}

// storedPosn finds a chunk stored under the same key as a put or erase.
func (d *dayFile) storedPosn(t int64, f typeFilter) int {
	if len(d.refs) == 0 || t < d.hdr.StartValid || t > d.hdr.EndValid {
		return -1
	}
	return d.posnAtTime(t, f)
}

// insert places ref after any existing references with the same or an
// earlier valid time and returns its position.
func (d *dayFile) insert(ref io.ChunkRef, aux io.AuxRef) int {
	n := len(d.refs)
	pos := n
	for pos > 0 && d.refs[pos-1].ValidTime > ref.ValidTime {
		pos--
	}

	d.refs = append(d.refs, io.ChunkRef{})
	d.aux = append(d.aux, io.AuxRef{})
	if pos < n {
		copy(d.refs[pos+1:], d.refs[pos:n])
		copy(d.aux[pos+1:], d.aux[pos:n])
	}
	d.refs[pos] = ref
	d.aux[pos] = aux
	d.hdr.NBytesData += int64(ref.Len)

	m := utils.MinuteOfDay(ref.ValidTime)
	if b := d.hdr.MinutePosn[m]; b == io.NoPosition || int(b) > pos {
		d.hdr.MinutePosn[m] = int32(pos)
	}
	if pos < n {
		for i := m + 1; i < utils.MinsInDay; i++ {
			if d.hdr.MinutePosn[i] != io.NoPosition {
				d.hdr.MinutePosn[i]++
			}
		}
	}
	return pos
}

// remove drops the reference at pos.  Byte accounting is left to the
// caller.
func (d *dayFile) remove(pos int) {
	n := len(d.refs)
	m := utils.MinuteOfDay(d.refs[pos].ValidTime)

	if int(d.hdr.MinutePosn[m]) == pos {
		sameMinuteNext := pos+1 < n && utils.MinuteOfDay(d.refs[pos+1].ValidTime) == m
		if !sameMinuteNext {
			d.hdr.MinutePosn[m] = io.NoPosition
		}
	}
	for i := m + 1; i < utils.MinsInDay; i++ {
		if d.hdr.MinutePosn[i] != io.NoPosition {
			d.hdr.MinutePosn[i]--
		}
	}

	copy(d.refs[pos:], d.refs[pos+1:])
	copy(d.aux[pos:], d.aux[pos+1:])
	d.refs = d.refs[:n-1]
	d.aux = d.aux[:n-1]
}

// rebuildMinutes recomputes the minute table from the references.
func (d *dayFile) rebuildMinutes() {
	for i := range d.hdr.MinutePosn {
		d.hdr.MinutePosn[i] = io.NoPosition
	}
	for i := len(d.refs) - 1; i >= 0; i-- {
		d.hdr.MinutePosn[d.minute(d.refs[i].ValidTime)] = int32(i)
	}
}
