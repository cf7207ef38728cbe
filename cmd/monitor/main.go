package monitor

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alpacahq/chunkstore/internal/di"
	"github.com/alpacahq/chunkstore/metrics"
	"github.com/alpacahq/chunkstore/utils/log"
)

const (
	usage      = "monitor"
	short      = "Serve store metrics"
	long       = "This command serves prometheus metrics, including the disk usage of the root directory"
	example    = "chunkstore monitor --config <path> [--listen :8080]"
	configDesc = "set the path for the chunkstore YAML configuration file"
	listenDesc = "override the metrics listen address from the configuration"

	defaultListen    = ":9100"
	shutdownDeadline = 5 * time.Second
)

var (
	// Cmd is the monitor command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Example: example,
		RunE:    executeMonitor,
	}
	configFilePath string
	listenAddr     string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&configFilePath, "config", "c", "", configDesc)
	Cmd.Flags().StringVar(&listenAddr, "listen", "", listenDesc)
}

func executeMonitor(cmd *cobra.Command, _ []string) error {
	c, err := di.LoadContainer(configFilePath, "")
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true
	config := c.GetConfig()

	addr := listenAddr
	if addr == "" {
		addr = config.MetricsListen
	}
	if addr == "" {
		addr = defaultListen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go metrics.StartDiskUsageMonitor(ctx, metrics.DiskUsageBytes, c.GetAbsRootDir(), config.DiskUsageInterval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		log.Info("initiating graceful shutdown...")
		sctx, scancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error("metrics server shutdown: %v", err)
		}
	}()

	log.Info("launching prometheus metrics server on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("exiting...")
	os.Stdout.Sync()
	return nil
}
