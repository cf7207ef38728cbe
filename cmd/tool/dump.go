package tool

import (
	"fmt"
	"os"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"
)

var (
	dumpType, dumpType2 int32
	dumpRefsOnly        bool
	dumpData            bool

	dumpCmd = &cobra.Command{
		Use:     "dump <product> <start> <end>",
		Short:   "List the chunks stored in an interval",
		Long:    "This command lists the chunks whose valid time falls in [start, end], optionally writing their payloads to stdout",
		Example: "chunkstore tool dump --root /data spdb/metar 2024-03-01T00:00:00Z 2024-03-02T00:00:00Z --refs",
		Args:    cobra.ExactArgs(3),
		RunE:    executeDump,
	}
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	dumpCmd.Flags().Int32Var(&dumpType, "type", 0, "data type to match, 0 matches any")
	dumpCmd.Flags().Int32Var(&dumpType2, "type2", 0, "second data type to match, 0 matches any")
	dumpCmd.Flags().BoolVar(&dumpRefsOnly, "refs", false, "read chunk references only")
	dumpCmd.Flags().BoolVar(&dumpData, "data", false, "write chunk payloads to stdout")
}

func executeDump(cmd *cobra.Command, args []string) error {
	start, err := parseTime(args[1])
	if err != nil {
		return err
	}
	end, err := parseTime(args[2])
	if err != nil {
		return err
	}
	if dumpRefsOnly && dumpData {
		return fmt.Errorf("--refs and --data cannot be combined")
	}
	c, err := loadContainer()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true
	s, err := c.GetStore()
	if err != nil {
		return err
	}
	s.SetGetRefsOnly(dumpRefsOnly)
	chunks, err := s.GetInterval(args[0], start, end, dumpType, dumpType2)
	if err != nil {
		return err
	}
	for _, ch := range chunks {
		if dumpData {
			if _, err := os.Stdout.Write(ch.Data); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s  expire %s  type %d/%d  %s  %s  %q\n",
			ch.ValidTime.Format(time.RFC3339), ch.ExpireTime.Format(time.RFC3339),
			ch.DataType, ch.DataType2, bytefmt.ByteSize(uint64(ch.StoredLen)),
			ch.StoredCompression, ch.Tag)
	}
	if !dumpData {
		fmt.Printf("%d chunks\n", len(chunks))
	}
	return nil
}
