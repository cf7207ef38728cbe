package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/log"
)

const (
	IndexExt = ".indx"
	DataExt  = ".data"
)

// DayFiles is one YYYYMMDD.indx / YYYYMMDD.data pair.
type DayFiles struct {
	Start     int64
	Name      string
	IndexPath string
	DataPath  string
	IndexSize int64
	DataSize  int64
}

// HasChunks reports whether the index holds at least one reference.
func (f DayFiles) HasChunks() bool {
	return f.IndexSize >= int64(io.HeaderSize+io.ChunkRefSize)
}

// IndexPath returns the index file path for the day holding t.
func IndexPath(dir string, t int64) string {
	return filepath.Join(dir, utils.DayName(t)+IndexExt)
}

// DataPath returns the data file path for the day holding t.
func DataPath(dir string, t int64) string {
	return filepath.Join(dir, utils.DayName(t)+DataExt)
}

// Directory is the set of day files in one product directory, as of
// the last load.
type Directory struct {
	sync.RWMutex

	path string
	// days is sorted by Start
	days []DayFiles
}

// NewDirectory scans the day files under path.
// - returns NotFoundError when path does not exist,
// - returns an error in other unexpected cases.
func NewDirectory(path string) (*Directory, error) {
	d := &Directory{path: filepath.Clean(path)}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) Reload() error {
	days, err := load(d.path)
	if err != nil {
		return err
	}
	d.Lock()
	d.days = days
	d.Unlock()
	return nil
}

func load(path string) ([]DayFiles, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError(path)
		}
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	var days []DayFiles
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != IndexExt {
			continue
		}
		base := strings.TrimSuffix(name, IndexExt)
		start, err := utils.ParseDayName(base)
		if err != nil {
			continue
		}
		df := DayFiles{
			Start:     start,
			Name:      base,
			IndexPath: filepath.Join(path, name),
			DataPath:  filepath.Join(path, base+DataExt),
		}
		dst, err := os.Stat(df.DataPath)
		if err != nil {
			log.Debug("index %s has no data file, skipping", df.IndexPath)
			continue
		}
		df.DataSize = dst.Size()
		if info, err := e.Info(); err == nil {
			df.IndexSize = info.Size()
		}
		days = append(days, df)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Start < days[j].Start })
	return days, nil
}

func (d *Directory) GetPath() string {
	return d.path
}

func (d *Directory) Days() []DayFiles {
	d.RLock()
	defer d.RUnlock()
	out := make([]DayFiles, len(d.days))
	copy(out, d.days)
	return out
}

// DaysBetween returns the pairs whose day overlaps [start, end].
func (d *Directory) DaysBetween(start, end int64) []DayFiles {
	d.RLock()
	defer d.RUnlock()
	lo := utils.DayStart(start)
	var out []DayFiles
	for _, df := range d.days {
		if df.Start >= lo && df.Start <= end {
			out = append(out, df)
		}
	}
	return out
}

// First returns the earliest day holding chunks.
func (d *Directory) First() (DayFiles, bool) {
	d.RLock()
	defer d.RUnlock()
	for _, df := range d.days {
		if df.HasChunks() {
			return df, true
		}
	}
	return DayFiles{}, false
}

// Last returns the latest day holding chunks.
func (d *Directory) Last() (DayFiles, bool) {
	d.RLock()
	defer d.RUnlock()
	for i := len(d.days) - 1; i >= 0; i-- {
		if d.days[i].HasChunks() {
			return d.days[i], true
		}
	}
	return DayFiles{}, false
}

// Has reports whether a pair exists for the day holding t.
func (d *Directory) Has(t int64) bool {
	d.RLock()
	defer d.RUnlock()
	start := utils.DayStart(t)
	i := sort.Search(len(d.days), func(i int) bool { return d.days[i].Start >= start })
	return i < len(d.days) && d.days[i].Start == start
}

func (d *Directory) String() string {
	d.RLock()
	defer d.RUnlock()
	if len(d.days) == 0 {
		return d.path + ": no day files"
	}
	return fmt.Sprintf("%s: %d day files, %s..%s", d.path, len(d.days), d.days[0].Name, d.days[len(d.days)-1].Name)
}

// FindProducts returns the directories under root that hold day files
// and whose root-relative path matches pattern, a glob where '*' does
// not cross '/' and '**' does.  An empty pattern matches everything.
func FindProducts(root, pattern string) ([]string, error) {
	var g glob.Glob
	if pattern != "" {
		var err error
		if g, err = glob.Compile(pattern, '/'); err != nil {
			return nil, fmt.Errorf("bad product pattern %q: %w", pattern, err)
		}
	}
	var found []string
	err := filepath.WalkDir(root, func(p string, e os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() {
			return nil
		}
		days, err := load(p)
		if err != nil || len(days) == 0 {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if g == nil || g.Match(filepath.ToSlash(rel)) {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}
