package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var namespace = "chunkstore"
var subsystem = "store"

var (
	// CallDuration stores the processing time of every public store
	// call partitioned by method
	CallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "call_duration_seconds",
		Help:      "Store call processing time partitioned by method",
	}, []string{"method"})

	// CallsTotal stores the number of store calls partitioned by method
	// and result ("ok" or "error")
	CallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "calls_total",
		Help:      "Number of store calls partitioned by method and result",
	}, []string{"method", "result"})

	ChunksWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "chunks_written_total",
		Help:      "Number of chunks committed by puts",
	})

	ChunksRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "chunks_read_total",
		Help:      "Number of chunks returned by gets",
	})

	DefragTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "defrag_total",
		Help:      "Number of data files compacted",
	})

	DefragReclaimedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "defrag_reclaimed_bytes_total",
		Help:      "Bytes reclaimed by data file compaction",
	})

	// LockWaitSeconds stores how long calls waited for the directory
	// lock partitioned by mode
	LockWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "lock_wait_seconds",
		Help:      "Time spent acquiring the directory lock partitioned by mode",
	}, []string{"mode"})

	// DiskUsageBytes stores the space used under the root directory
	DiskUsageBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "disk_usage_bytes",
		Help:      "Disk space used by the files under the root directory",
	})
)
