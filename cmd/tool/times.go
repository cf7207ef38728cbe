package tool

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/log"
)

var (
	timesGlob string

	timesCmd = &cobra.Command{
		Use:     "times",
		Short:   "List the stored time range of products",
		Long:    "This command prints the first, last and latest valid times of every product directory matching the glob",
		Example: "chunkstore tool times --root /data --glob 'spdb/**'",
		Args:    cobra.NoArgs,
		RunE:    executeTimes,
	}
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	timesCmd.Flags().StringVarP(&timesGlob, "glob", "g", "**", "match product directories relative to the root")
}

func executeTimes(cmd *cobra.Command, _ []string) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true
	s, err := c.GetStore()
	if err != nil {
		return err
	}
	dirs, err := c.GetProductDirs(timesGlob)
	if err != nil {
		return err
	}
	root := utils.NewDataDir(c.GetAbsRootDir())
	for _, dir := range dirs {
		times, err := s.GetTimes(dir)
		if err != nil {
			log.Warn("%s: %v", dir, err)
			continue
		}
		fmt.Printf("%-40s %s  %s  %s\n", root.Rel(dir),
			times.First.Format(time.RFC3339),
			times.Last.Format(time.RFC3339),
			times.LastValid.Format(time.RFC3339))
	}
	return nil
}
