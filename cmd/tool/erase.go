package tool

import (
	"github.com/spf13/cobra"

	"github.com/alpacahq/chunkstore/utils/log"
)

var (
	eraseType, eraseType2 int32

	eraseCmd = &cobra.Command{
		Use:     "erase <product> <time>",
		Short:   "Erase the chunks stored at one valid time",
		Long:    "This command removes every chunk reference at the valid time matching the data types",
		Example: "chunkstore tool erase --root /data spdb/metar 2024-03-01T12:00:00Z --type 42",
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
			if err := s.Erase(args[0], t, eraseType, eraseType2); err != nil {
				return err
			}
			log.Info("erased %s at %s", args[0], t)
			return nil
		},
	}
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	eraseCmd.Flags().Int32Var(&eraseType, "type", 0, "data type to match, 0 matches any")
	eraseCmd.Flags().Int32Var(&eraseType2, "type2", 0, "second data type to match, 0 matches any")
}
