// Package executor implements the chunk store: a per-product directory
// of day files holding opaque chunks keyed by valid time and two data
// types, with put modes, nearest/interval gets and defragmentation.
//
// A Store is not safe for concurrent use.  Processes sharing a
// directory are serialized by the advisory lock each public call holds
// for its whole duration.
package executor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/metrics"
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/compress"
	"github.com/alpacahq/chunkstore/utils/lock"
	"github.com/alpacahq/chunkstore/utils/log"
)

type UniqueMode int

const (
	UniqueOff UniqueMode = iota
	UniqueLatest
	UniqueEarliest
)

// DefaultMinInterval is the CompileTimeList interval that drops only
// duplicate times.
const DefaultMinInterval = time.Second

type Store struct {
	dataDir *utils.DataDir
	appName string

	putMode              utils.PutMode
	compressOnPut        compress.Kind
	uncompressOnGet      bool
	unique               UniqueMode
	respectZeroTypes     bool
	checkWriteTime       bool
	latestValidWriteTime int64
	refsOnly             bool
	enableDefrag         bool
	ignoreLock           bool
	leadTimeStorage      utils.LeadTimeStorage
	writeMarker          bool

	staged []stagedChunk

	// state of the call in progress
	path   string
	cat    *catalog.Directory
	day    *dayFile
	errStr strings.Builder
	chunks []Chunk

	latestValidPut int64
}

// NewStore builds a store from cfg.  A nil cfg uses utils.DefaultConfig.
func NewStore(cfg *utils.StoreConfig) (*Store, error) {
	if cfg == nil {
		cfg = utils.DefaultConfig()
	}
	kind, err := compress.ParseKind(cfg.CompressOnPut)
	if err != nil {
		return nil, errors.Wrap(err, "compress_on_put")
	}
	return &Store{
		dataDir:          utils.NewDataDir(cfg.RootDirectory),
		appName:          cfg.AppName,
		putMode:          cfg.PutMode,
		compressOnPut:    kind,
		uncompressOnGet:  cfg.UncompressOnGet,
		respectZeroTypes: cfg.RespectZeroTypes,
		enableDefrag:     cfg.EnableDefrag,
		ignoreLock:       cfg.IgnoreLock,
		leadTimeStorage:  cfg.LeadTimeStorage,
		writeMarker:      cfg.LatestDataMarker,
	}, nil
}

func (s *Store) SetPutMode(m utils.PutMode) { s.putMode = m }
func (s *Store) SetCompressOnPut(k compress.Kind) { s.compressOnPut = k }
func (s *Store) SetUncompressOnGet(v bool) { s.uncompressOnGet = v }
func (s *Store) SetUniqueMode(m UniqueMode) { s.unique = m }
func (s *Store) SetRespectZeroTypes(v bool) { s.respectZeroTypes = v }
func (s *Store) SetGetRefsOnly(v bool) { s.refsOnly = v }
func (s *Store) SetDefrag(v bool) { s.enableDefrag = v }
func (s *Store) SetIgnoreLock(v bool) { s.ignoreLock = v }
func (s *Store) SetLeadTimeStorage(l utils.LeadTimeStorage) { s.leadTimeStorage = l }
func (s *Store) SetLatestDataMarker(v bool) { s.writeMarker = v }
func (s *Store) SetAppName(name string) { s.appName = name }

// SetLatestValidWriteTime makes gets ignore chunks written after t.
func (s *Store) SetLatestValidWriteTime(t time.Time) {
	s.checkWriteTime = true
	s.latestValidWriteTime = t.Unix()
}

func (s *Store) ClearLatestValidWriteTime() {
	s.checkWriteTime = false
	s.latestValidWriteTime = 0
}

// ErrStr holds the diagnostics of the last call, warnings included.
func (s *Store) ErrStr() string {
	return s.errStr.String()
}

// LatestValidTimePut is the newest valid time committed by the last Put.
func (s *Store) LatestValidTimePut() time.Time {
	return utils.Unix(s.latestValidPut)
}

// Path resolves dir the way every call does.
func (s *Store) Path(dir string) string {
	return s.dataDir.Resolve(dir)
}

func (s *Store) beginCall(name, dir string) {
	s.errStr.Reset()
	fmt.Fprintf(&s.errStr, "Running %s\n", name)
	s.path = s.dataDir.Resolve(dir)
	s.cat = nil
	s.day = nil
}

func (s *Store) endCall(method string, start time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = "error"
		fmt.Fprintf(&s.errStr, "ERROR - %v\n", *err)
	}
	metrics.CallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.CallsTotal.WithLabelValues(method, result).Inc()
}

func (s *Store) warn(err error) {
	log.Warn("%s: %v", s.path, err)
	fmt.Fprintf(&s.errStr, "WARNING - %v\n", err)
}

// withLock runs fn holding the directory lock.  The lock is released
// and any day left open is closed without syncing on every exit path.
func (s *Store) withLock(mode lock.Mode, fn func() error) (err error) {
	waitStart := time.Now()
	lk, lerr := lock.Acquire(s.path, mode)
	metrics.LockWaitSeconds.WithLabelValues(mode.String()).Observe(time.Since(waitStart).Seconds())
	if lerr != nil {
		lerr = &LockError{Dir: s.path, Mode: mode.String(), Err: lerr}
		if mode == lock.Write || !(s.ignoreLock || utils.AllowNoLock()) {
			return lerr
		}
		s.warn(errors.Wrap(lerr, "continuing without lock"))
	}
	defer func() {
		if s.day != nil {
			if cerr := s.closeDay(false); cerr != nil && err == nil {
				err = cerr
			}
		}
		if rerr := lk.Release(); rerr != nil && err == nil {
			err = &LockError{Dir: s.path, Mode: "release", Err: rerr}
		}
	}()
	return fn()
}

func (s *Store) catalog() (*catalog.Directory, error) {
	if s.cat != nil {
		return s.cat, nil
	}
	cat, err := catalog.NewDirectory(s.path)
	if err != nil {
		return nil, err
	}
	s.cat = cat
	return cat, nil
}

func (s *Store) openOptions(prodID int32, label string, mode lock.Mode, withData bool) openOptions {
	return openOptions{
		prodID:    prodID,
		label:     label,
		mode:      mode,
		withData:  withData,
		leadTime:  s.leadTimeStorage,
		onWarning: s.warn,
	}
}

// checkOpen makes the day holding t the open day.  It is a no-op when
// that day is already open in mode.
func (s *Store) checkOpen(prodID int32, label string, t int64, mode lock.Mode) openResult {
	if s.day != nil && s.day.start == utils.DayStart(t) && s.day.mode == mode {
		return openResult{status: dayOpened, day: s.day}
	}
	if s.day != nil {
		if err := s.closeDay(true); err != nil {
			return openResult{status: dayOpenFailed, err: err}
		}
	}
	withData := mode == lock.Write || !s.refsOnly
	res := openDay(s.path, t, s.openOptions(prodID, label, mode, withData))
	if res.status == dayOpened {
		s.day = res.day
	}
	return res
}

// closeDay closes the open day.  With sync set a write-mode day is
// defragmented when due and its index rewritten.
func (s *Store) closeDay(sync bool) error {
	d := s.day
	s.day = nil
	if d == nil {
		return nil
	}
	if d.mode == lock.Write && sync {
		if s.enableDefrag && needsDefrag(d.hdr.NBytesFrag, d.hdr.NBytesData) {
			if _, err := s.defragDay(d); err != nil {
				d.closeHandles()
				return err
			}
		}
		if err := d.sync(); err != nil {
			d.closeHandles()
			return err
		}
	}
	return d.closeHandles()
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
