package integrity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/executor"
	"github.com/alpacahq/chunkstore/utils/lock"
	"github.com/alpacahq/chunkstore/utils/log"
	"github.com/alpacahq/chunkstore/utils/pool"
)

const (
	usage   = "integrity"
	short   = "Check day files for inconsistencies"
	long    = "This command checks reference order, minute tables, data offsets and byte accounting of every day file pair"
	example = "chunkstore tool integrity --dir <path> --glob 'spdb/**' --parallel 4"

	// Flag descriptions.
	rootDirPathDesc = "set filesystem path of the directory containing the files to evaluate"
	globDesc        = "limit the evaluation to product directories matching the glob"
	dayStartDesc    = "limit the evaluation to days on or after dayStart (YYYYMMDD)"
	dayEndDesc      = "limit the evaluation to days on or before dayEnd (YYYYMMDD)"
	parallelDesc    = "number of product directories evaluated at once"
)

var (
	// Available flags.
	rootDirPath      string
	glob             string
	dayStart, dayEnd string
	parallel         int

	// Cmd is the integrity command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Aliases: []string{"ic", "integritycheck"},
		Example: example,
		RunE:    executeIntegrity,
	}
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	// Parse flags.
	Cmd.Flags().StringVarP(&rootDirPath, "dir", "d", "", rootDirPathDesc)
	_ = Cmd.MarkFlagRequired("dir")
	Cmd.Flags().StringVar(&glob, "glob", "", globDesc)
	Cmd.Flags().StringVar(&dayStart, "dayStart", "", dayStartDesc)
	Cmd.Flags().StringVar(&dayEnd, "dayEnd", "", dayEndDesc)
	Cmd.Flags().IntVar(&parallel, "parallel", 1, parallelDesc)
}

type report struct {
	dir      string
	days     int
	bytes    int64
	problems []executor.Problem
	err      error
}

// executeIntegrity implements the integrity tool.
func executeIntegrity(cmd *cobra.Command, _ []string) error {
	rootDirPath = filepath.Clean(rootDirPath)
	if !isDir(rootDirPath) {
		return fmt.Errorf("root directory: %s is not a directory", rootDirPath)
	}
	cmd.SilenceUsage = true

	if parallel <= 1 {
		log.Info("Running single threaded")
	} else {
		log.Info("Running in parallel")
	}
	log.Info("Root directory: %v", rootDirPath)

	dirs, err := catalog.FindProducts(rootDirPath, glob)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		reports []report
	)
	p := pool.NewPool(parallel, func(input interface{}) {
		r := checkProduct(input.(string))
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
	})
	c := make(chan interface{})
	go func() {
		for _, dir := range dirs {
			c <- dir
		}
		close(c)
	}()
	p.Work(c)

	sort.Slice(reports, func(i, j int) bool { return reports[i].dir < reports[j].dir })

	var failed int
	for _, r := range reports {
		rel, _ := filepath.Rel(rootDirPath, r.dir)
		switch {
		case r.err != nil:
			failed++
			fmt.Printf("%-40s ERROR %v\n", rel, r.err)
		case len(r.problems) > 0:
			failed++
			fmt.Printf("%-40s %d days, %s, %d problems\n", rel, r.days, bytefmt.ByteSize(uint64(r.bytes)), len(r.problems))
			for _, pr := range r.problems {
				fmt.Printf("    %s\n", pr)
			}
		default:
			fmt.Printf("%-40s %d days, %s, ok\n", rel, r.days, bytefmt.ByteSize(uint64(r.bytes)))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d product directories failed the integrity check", failed, len(reports))
	}
	return nil
}

func checkProduct(dir string) (r report) {
	r.dir = dir
	l, err := lock.Acquire(dir, lock.Read)
	if err != nil {
		r.err = err
		return r
	}
	defer func() {
		if err := l.Release(); err != nil {
			log.Warn("release %s: %v", l.Path(), err)
		}
	}()

	d, err := catalog.NewDirectory(dir)
	if err != nil {
		r.err = err
		return r
	}
	for _, df := range d.Days() {
		if (dayStart != "" && df.Name < dayStart) || (dayEnd != "" && df.Name > dayEnd) {
			continue
		}
		problems, err := executor.VerifyDay(df)
		if err != nil {
			r.err = err
			return r
		}
		r.days++
		r.bytes += df.IndexSize + df.DataSize
		r.problems = append(r.problems, problems...)
	}
	return r
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}
