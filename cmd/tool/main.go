package tool

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alpacahq/chunkstore/cmd/tool/integrity"
	"github.com/alpacahq/chunkstore/internal/di"
)

const (
	toolUsage     = "tool"
	toolShortDesc = "Executes tools as subcommands"
	toolLongDesc  = "This command executes the specified tool against a chunk store root directory."
	toolExample   = "chunkstore tool header --root <path> spdb/metar 2024-03-01T00:00:00Z"

	configDesc = "set the path for the chunkstore YAML configuration file"
	rootDesc   = "override the root directory from the configuration"
)

var (
	// Cmd is the tool command.
	Cmd = &cobra.Command{
		Use:        toolUsage,
		Short:      toolShortDesc,
		Long:       toolLongDesc,
		SuggestFor: []string{"header", "integrity"},
		Example:    toolExample,
	}

	configFilePath string
	rootDir        string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", configDesc)
	Cmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", rootDesc)

	Cmd.AddCommand(headerCmd)
	Cmd.AddCommand(timesCmd)
	Cmd.AddCommand(dumpCmd)
	Cmd.AddCommand(putCmd)
	Cmd.AddCommand(eraseCmd)
	Cmd.AddCommand(defragCmd)
	Cmd.AddCommand(integrity.Cmd)
}

func loadContainer() (*di.Container, error) {
	if configFilePath == "" && rootDir == "" {
		return nil, fmt.Errorf("one of --config or --root is required")
	}
	return di.LoadContainer(configFilePath, rootDir)
}

// parseTime accepts RFC3339 or integer unix seconds.
func parseTime(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or unix seconds", s)
	}
	return t.UTC(), nil
}
