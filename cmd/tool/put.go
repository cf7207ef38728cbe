package tool

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/compress"
	"github.com/alpacahq/chunkstore/utils/log"
)

var (
	putFile         string
	putValid        string
	putExpire       string
	putType         int32
	putType2        int32
	putModeName     string
	putProdID       int32
	putLabel        string
	putTag          string
	putCompressName string

	putCmd = &cobra.Command{
		Use:     "put <product>",
		Short:   "Store one file as a chunk",
		Long:    "This command stores the contents of a file as one chunk at the given valid time",
		Example: "chunkstore tool put --root /data spdb/metar --file obs.bin --valid 2024-03-01T12:00:00Z --type 42",
		Args:    cobra.ExactArgs(1),
		RunE:    executePut,
	}
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	putCmd.Flags().StringVarP(&putFile, "file", "f", "", "file holding the chunk payload")
	putCmd.Flags().StringVar(&putValid, "valid", "", "valid time of the chunk")
	putCmd.Flags().StringVar(&putExpire, "expire", "", "expire time of the chunk, defaults to the valid time")
	putCmd.Flags().Int32Var(&putType, "type", 0, "data type of the chunk")
	putCmd.Flags().Int32Var(&putType2, "type2", 0, "second data type of the chunk")
	putCmd.Flags().StringVar(&putModeName, "mode", "", "put mode: over, once, add or add_unique")
	putCmd.Flags().Int32Var(&putProdID, "prod-id", 0, "product id written to new day headers")
	putCmd.Flags().StringVar(&putLabel, "label", "", "product label written to new day headers")
	putCmd.Flags().StringVar(&putTag, "tag", "", "short tag stored with the chunk")
	putCmd.Flags().StringVar(&putCompressName, "compress", "", "compression applied before storing")
	_ = putCmd.MarkFlagRequired("file")
	_ = putCmd.MarkFlagRequired("valid")
}

func executePut(cmd *cobra.Command, args []string) error {
	valid, err := parseTime(putValid)
	if err != nil {
		return err
	}
	expire := valid
	if putExpire != "" {
		if expire, err = parseTime(putExpire); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(putFile)
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
	if putModeName != "" {
		mode, err := utils.ParsePutMode(putModeName)
		if err != nil {
			return err
		}
		s.SetPutMode(mode)
	}
	if putCompressName != "" {
		kind, err := compress.ParseKind(putCompressName)
		if err != nil {
			return err
		}
		s.SetCompressOnPut(kind)
	}

	start := time.Now()
	s.AddPutChunk(putType, putType2, valid, expire, data, putTag)
	if err := s.Put(args[0], putProdID, putLabel); err != nil {
		return err
	}
	log.Info("stored %d bytes at %s in %s", len(data), valid.Format(time.RFC3339), time.Since(start))
	return nil
}
