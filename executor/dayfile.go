package executor

import (
	"bufio"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/executor/buffile"
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/lock"
	"github.com/alpacahq/chunkstore/utils/log"
)

type openStatus int

const (
	dayOpened openStatus = iota
	// dayEmpty means no file pair exists for a read.  It is not an
	// error, the day simply holds no chunks.
	dayEmpty
	dayOpenFailed
)

type openResult struct {
	status openStatus
	day    *dayFile
	err    error
}

type dataReader interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// dayFile is one open index/data pair with its references loaded.
type dayFile struct {
	start     int64
	indexPath string
	dataPath  string
	mode      lock.Mode

	hdr  *io.Header
	refs []io.ChunkRef
	aux  []io.AuxRef
	// auxMissing is set for files written without the aux section
	auxMissing bool

	// r is set for reads, w for writes; neither for header-only opens
	r dataReader
	w *buffile.BufferedFile
}

type openOptions struct {
	prodID    int32
	label     string
	mode      lock.Mode
	withData  bool
	leadTime  utils.LeadTimeStorage
	onWarning func(error)
}

func openDay(dir string, t int64, o openOptions) openResult {
	d := &dayFile{
		start:     utils.DayStart(t),
		indexPath: catalog.IndexPath(dir, t),
		dataPath:  catalog.DataPath(dir, t),
		mode:      o.mode,
	}
	idxExists := fileExists(d.indexPath)
	dataExists := fileExists(d.dataPath)

	if o.mode == lock.Read && !(idxExists && dataExists) {
		return openResult{status: dayEmpty}
	}

	if idxExists && dataExists {
		x, err := readIndexFile(d.indexPath)
		if err != nil {
			return openResult{status: dayOpenFailed, err: err}
		}
		if x.Truncated && o.onWarning != nil {
			o.onWarning(CorruptIndexWarning(d.indexPath))
		}
		d.hdr, d.refs, d.aux, d.auxMissing = x.Header, x.Refs, x.Aux, x.AuxMissing
		if x.Truncated {
			d.rebuildMinutes()
			d.recount()
		}
		if o.prodID != 0 && d.hdr.ProdID != 0 && o.prodID != d.hdr.ProdID {
			return openResult{status: dayOpenFailed, err: errors.Wrapf(
				ConfigurationError(d.indexPath), "have %d, want %d", d.hdr.ProdID, o.prodID)}
		}
	} else {
		if idxExists {
			log.Warn("index %s has no data file, starting the day afresh", d.indexPath)
		}
		d.hdr = io.NewHeader(t, o.prodID, o.label)
		// create both now so the pair is complete even if no chunk lands
		if err := writeEmptyFile(d.dataPath); err != nil {
			return openResult{status: dayOpenFailed, err: err}
		}
		if err := d.writeIndex(); err != nil {
			return openResult{status: dayOpenFailed, err: err}
		}
	}

	if o.mode == lock.Write {
		if d.hdr.ProdID == 0 && o.prodID != 0 {
			d.hdr.ProdID = o.prodID
		}
		if d.hdr.LabelString() == "" && o.label != "" {
			d.hdr.SetLabel(o.label)
		}
		if o.leadTime != utils.LeadTimeNotApplicable {
			d.hdr.LeadTimeStorage = int32(o.leadTime)
		}
	}

	if o.withData {
		var err error
		if o.mode == lock.Write {
			d.w, err = buffile.New(d.dataPath)
		} else {
			d.r, err = os.Open(d.dataPath)
		}
		if err != nil {
			return openResult{status: dayOpenFailed, err: &IOError{Op: "open", Path: d.dataPath, Err: err}}
		}
	}
	return openResult{status: dayOpened, day: d}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeEmptyFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o664)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	return f.Close()
}

func readIndexFile(path string) (*io.IndexFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	x, err := io.ReadIndex(bufio.NewReader(f))
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return x, nil
}

// writeIndex rewrites the index in place and truncates any tail left
// by a longer previous version.
func (d *dayFile) writeIndex() error {
	x := &io.IndexFile{Header: d.hdr, Refs: d.refs, Aux: d.aux}
	f, err := os.OpenFile(d.indexPath, os.O_WRONLY|os.O_CREATE, 0o664)
	if err != nil {
		return &IOError{Op: "open", Path: d.indexPath, Err: err}
	}
	w := bufio.NewWriter(f)
	if err = io.WriteIndex(w, x); err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = f.Truncate(x.Size())
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &IOError{Op: "write", Path: d.indexPath, Err: err}
	}
	d.auxMissing = false
	return nil
}

// readData returns the stored bytes for ref.
func (d *dayFile) readData(ref *io.ChunkRef) ([]byte, error) {
	var r interface {
		ReadAt(p []byte, off int64) (int, error)
	}
	switch {
	case d.w != nil:
		r = d.w
	case d.r != nil:
		r = d.r
	default:
		return nil, &IOError{Op: "read", Path: d.dataPath, Err: errors.New("data file not open")}
	}
	b := make([]byte, ref.Len)
	if ref.Len == 0 {
		return b, nil
	}
	n, err := r.ReadAt(b, int64(ref.Offset))
	if n == len(b) {
		return b, nil
	}
	if err == nil {
		err = errors.Errorf("short read: %d of %d bytes", n, len(b))
	}
	return nil, &IOError{Op: "read", Path: d.dataPath, Err: errors.Wrapf(err, "offset %d", ref.Offset)}
}

func (d *dayFile) checkRoom(n int) error {
	if d.w.Size()+int64(n) > math.MaxUint32 {
		return &IOError{Op: "write", Path: d.dataPath, Err: errors.New("data file would exceed 4GiB")}
	}
	return nil
}

// appendData writes b at the end of the data file.
func (d *dayFile) appendData(b []byte) (uint32, error) {
	if err := d.checkRoom(len(b)); err != nil {
		return 0, err
	}
	off, err := d.w.Append(b)
	if err != nil {
		return 0, &IOError{Op: "write", Path: d.dataPath, Err: err}
	}
	return uint32(off), nil
}

func (d *dayFile) writeDataAt(b []byte, off uint32) error {
	if _, err := d.w.WriteAt(b, int64(off)); err != nil {
		return &IOError{Op: "write", Path: d.dataPath, Err: err}
	}
	return nil
}

// recount redoes the byte accounting from the references after an
// index was found cut short.  Bytes no reference covers are fragmentation.
func (d *dayFile) recount() {
	var live int64
	for i := range d.refs {
		live += int64(d.refs[i].Len)
	}
	d.hdr.NBytesData = live
	d.hdr.NBytesFrag = 0
	if st, err := os.Stat(d.dataPath); err == nil && st.Size() > live {
		d.hdr.NBytesFrag = st.Size() - live
	}
}

// updateStats folds a stored chunk into the header's time bookkeeping.
func (d *dayFile) updateStats(ref *io.ChunkRef) {
	h := d.hdr
	if dur := ref.ExpireTime - ref.ValidTime; dur > h.MaxDuration {
		h.MaxDuration = dur
	}
	if ref.ValidTime < h.StartValid {
		h.StartValid = ref.ValidTime
	}
	if ref.ValidTime > h.EndValid {
		h.EndValid = ref.ValidTime
	}
	if ref.ExpireTime > h.LatestExpire {
		h.LatestExpire = ref.ExpireTime
	}
	if ref.ValidTime < h.EarliestValid {
		h.EarliestValid = ref.ValidTime
	}
}

// sync makes the data durable and then writes the index, so the index
// never points at bytes that are not on disk.
func (d *dayFile) sync() error {
	if d.w != nil {
		if err := d.w.Sync(); err != nil {
			return &IOError{Op: "sync", Path: d.dataPath, Err: err}
		}
	}
	return d.writeIndex()
}

func (d *dayFile) closeHandles() error {
	var err error
	if d.w != nil {
		err = d.w.Close()
		d.w = nil
	}
	if d.r != nil {
		if rerr := d.r.Close(); err == nil {
			err = rerr
		}
		d.r = nil
	}
	if err != nil {
		return &IOError{Op: "close", Path: d.dataPath, Err: err}
	}
	return nil
}
