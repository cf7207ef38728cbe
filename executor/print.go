package executor

import (
	"fmt"
	stdio "io"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/compress"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/lock"
)

// PrintHeader writes the header, the minute table and the reference
// table of the day holding t.
func (s *Store) PrintHeader(dir string, t time.Time, w stdio.Writer) (err error) {
	s.beginCall("PrintHeader", dir)
	defer s.endCall("print_header", time.Now(), &err)

	if !dirExists(s.path) {
		return catalog.NotFoundError(s.path)
	}
	return s.withLock(lock.Read, func() error {
		res := openDay(s.path, t.Unix(), s.openOptions(0, "", lock.Read, false))
		switch res.status {
		case dayEmpty:
			fmt.Fprintf(w, "No day files for %s in %s\n", utils.DayName(t.Unix()), s.path)
			return nil
		case dayOpenFailed:
			return res.err
		}
		printDay(w, res.day)
		return nil
	})
}

func printDay(w stdio.Writer, d *dayFile) {
	h := d.hdr
	ts := func(v int64) string { return utils.Unix(v).Format("2006/01/02 15:04:05") }

	fmt.Fprintf(w, "Index file:       %s\n", d.indexPath)
	fmt.Fprintf(w, "Label:            %s\n", h.LabelString())
	fmt.Fprintf(w, "Version:          %d.%d\n", h.MajorVersion, h.MinorVersion)
	fmt.Fprintf(w, "Product id:       %d\n", h.ProdID)
	fmt.Fprintf(w, "Chunks:           %d\n", len(d.refs))
	fmt.Fprintf(w, "Data bytes:       %s\n", bytefmt.ByteSize(uint64(h.NBytesData)))
	fmt.Fprintf(w, "Fragmented bytes: %s\n", bytefmt.ByteSize(uint64(h.NBytesFrag)))
	fmt.Fprintf(w, "Max duration:     %ds\n", h.MaxDuration)
	fmt.Fprintf(w, "Day:              %s - %s\n", ts(h.StartOfDay), ts(h.EndOfDay))
	if len(d.refs) > 0 {
		fmt.Fprintf(w, "Valid:            %s - %s\n", ts(h.StartValid), ts(h.EndValid))
		fmt.Fprintf(w, "Latest expire:    %s\n", ts(h.LatestExpire))
	}
	fmt.Fprintf(w, "Earliest valid:   %s\n", ts(h.EarliestValid))
	fmt.Fprintf(w, "Lead time:        %s\n", utils.LeadTimeStorage(h.LeadTimeStorage))
	if d.auxMissing {
		fmt.Fprintln(w, "Aux refs:         missing")
	}

	fmt.Fprintln(w, "\nMinute table:")
	for m, p := range h.MinutePosn {
		if p != io.NoPosition {
			fmt.Fprintf(w, "  %02d:%02d  %d\n", m/60, m%60, p)
		}
	}

	fmt.Fprintln(w, "\nChunks:")
	fmt.Fprintf(w, "  %5s  %-19s  %-19s  %10s  %10s  %10s  %8s  %-6s  %s\n",
		"n", "valid", "expire", "type", "type2", "offset", "len", "comp", "tag")
	for i := range d.refs {
		ref, aux := &d.refs[i], &d.aux[i]
		fmt.Fprintf(w, "  %5d  %-19s  %-19s  %10d  %10d  %10d  %8d  %-6s  %s\n",
			i, ts(ref.ValidTime), ts(ref.ExpireTime), ref.DataType, ref.DataType2,
			ref.Offset, ref.Len, compress.Kind(aux.Compression), aux.TagString())
	}
}
