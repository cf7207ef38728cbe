package tool

import (
	"os"

	"github.com/spf13/cobra"
)

var headerCmd = &cobra.Command{
	Use:     "header <product> <time>",
	Short:   "Print the index header of one day",
	Long:    "This command prints the header, minute table and chunk references of the day file holding the given time",
	Example: "chunkstore tool header --root /data spdb/metar 2024-03-01T12:00:00Z",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseTime(args[1])
		if err != nil {
			return err
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
		return s.PrintHeader(args[0], t, os.Stdout)
	},
}
