package tool

import (
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/log"
)

var defragCmd = &cobra.Command{
	Use:     "defrag <product> [time]",
	Short:   "Compact the data files of a product",
	Long:    "This command rewrites data files to drop unreferenced bytes, for one day or for every day of the product",
	Example: "chunkstore tool defrag --root /data spdb/metar",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var days []time.Time
		if len(args) == 2 {
			t, err := parseTime(args[1])
			if err != nil {
				return err
			}
			days = append(days, t)
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
		if days == nil {
			d, err := c.GetDirectory(args[0])
			if err != nil {
				return err
			}
			for _, df := range d.Days() {
				days = append(days, utils.Unix(df.Start))
			}
		}
		var total int64
		for _, t := range days {
			n, err := s.Defrag(args[0], t)
			if err != nil {
				return err
			}
			total += n
		}
		log.Info("reclaimed %s over %d days", bytefmt.ByteSize(uint64(total)), len(days))
		return nil
	},
}
