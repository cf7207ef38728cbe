package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/test"
)

func newTestDay() *dayFile {
	start := test.Day0.Unix()
	return &dayFile{start: start, hdr: io.NewHeader(start, 0, "")}
}

func (d *dayFile) add(secs int64, dataType int32) int {
	return d.insert(io.ChunkRef{ValidTime: d.start + secs, ExpireTime: d.start + secs, DataType: dataType}, io.AuxRef{})
}

// checkMinutes verifies every defined bucket is the first reference of
// its minute and that every populated minute has a bucket.
func checkMinutes(t *testing.T, d *dayFile) {
	t.Helper()
	for i := 1; i < len(d.refs); i++ {
		assert.LessOrEqual(t, d.refs[i-1].ValidTime, d.refs[i].ValidTime, "refs out of order at %d", i)
	}
	first := map[int]int{}
	for i := len(d.refs) - 1; i >= 0; i-- {
		first[utils.MinuteOfDay(d.refs[i].ValidTime)] = i
	}
	for m, p := range d.hdr.MinutePosn {
		want, ok := first[m]
		if !ok {
			assert.Equal(t, io.NoPosition, p, "minute %d", m)
			continue
		}
		assert.Equal(t, int32(want), p, "minute %d", m)
	}
}

func TestInsertKeepsOrder(t *testing.T) {
	t.Parallel()
	d := newTestDay()

	assert.Equal(t, 0, d.add(600, 1))
	assert.Equal(t, 1, d.add(700, 1))
	// out of order, lands before both
	assert.Equal(t, 0, d.add(65, 1))
	// equal valid times keep insertion order
	assert.Equal(t, 2, d.add(600, 2))
	assert.Equal(t, 1, d.add(120, 3))
	assert.Equal(t, 2, d.add(125, 4))

	checkMinutes(t, d)
	assert.Equal(t, int32(1), d.refs[3].DataType)
	assert.Equal(t, int32(2), d.refs[4].DataType)
	assert.Equal(t, int64(0), d.hdr.NBytesData)
}

func TestRemoveKeepsBuckets(t *testing.T) {
	t.Parallel()
	d := newTestDay()
	for _, secs := range []int64{60, 61, 62, 180, 3600, 3601} {
		d.add(secs, 0)
	}

	// first of a shared minute
	d.remove(0)
	checkMinutes(t, d)
	// alone in its minute
	d.remove(2)
	checkMinutes(t, d)
	assert.Equal(t, io.NoPosition, d.hdr.MinutePosn[3])
	// last of a shared minute
	d.remove(3)
	checkMinutes(t, d)
	assert.Len(t, d.refs, 3)
}

func TestPosnLookups(t *testing.T) {
	t.Parallel()
	d := newTestDay()
	d.add(60, 1)
	d.add(90, 2)
	d.add(600, 1)
	d.add(3600, 2)
	s0 := d.start
	all := typeFilter{}

	assert.Equal(t, 1, d.posnAtTime(s0+90, all))
	assert.Equal(t, -1, d.posnAtTime(s0+91, all))
	assert.Equal(t, 2, d.posnAtTime(s0+600, typeFilter{dataType: 1}))
	assert.Equal(t, -1, d.posnAtTime(s0+600, typeFilter{dataType: 2}))

	assert.Equal(t, 0, d.firstPosnAfter(s0))
	assert.Equal(t, 2, d.firstPosnAfter(s0+91))
	assert.Equal(t, -1, d.firstPosnAfter(s0+3601))
	assert.Equal(t, -1, d.firstPosnAfter(s0+utils.SecsInDay))

	assert.Equal(t, -1, d.lastPosnBefore(s0+59))
	assert.Equal(t, 0, d.lastPosnBefore(s0+89))
	assert.Equal(t, 1, d.lastPosnBefore(s0+90))
	assert.Equal(t, 2, d.lastPosnBefore(s0+3599))
	assert.Equal(t, 3, d.lastPosnBefore(s0+utils.SecsInDay+10))
}

func TestRebuildMinutes(t *testing.T) {
	t.Parallel()
	d := newTestDay()
	for _, secs := range []int64{60, 61, 180, 3600} {
		d.add(secs, 0)
	}
	d.refs = d.refs[:2]
	d.aux = d.aux[:2]
	d.rebuildMinutes()
	checkMinutes(t, d)
	assert.Equal(t, -1, d.lastPosnBefore(d.start+30))
	assert.Equal(t, 1, d.lastPosnBefore(d.start+4000))
}

func TestNeedsDefrag(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		frag, data int64
		want       bool
	}{
		"none":                  {0, 1000, false},
		"small and large share": {2, 1, true},
		"small under force":     {500, 10000, false},
		"large but thin":        {20000, 1000000, false},
		"large and over 5%":     {20000, 100000, true},
		"empty data":            {10, 0, true},
		"over force of data":    {350, 1000, true},
		"under force of data":   {290, 1000, false},
	}
	for name, tt := range tests {
		assert.Equal(t, tt.want, needsDefrag(tt.frag, tt.data), name)
	}
}
