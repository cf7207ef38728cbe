package metrics_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/metrics"
)

type mockMetricsSetter struct {
	mu    sync.Mutex
	value float64
	calls int
}

func (m *mockMetricsSetter) Set(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
	m.calls++
}

func (m *mockMetricsSetter) get() (float64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.calls
}

func TestDiskUsage(t *testing.T) {
	t.Parallel()
	rootDir := t.TempDir()

	assert.Equal(t, int64(0), metrics.DiskUsage(rootDir))

	// truncate => allocate the filesize, writeBuffer => write actual data
	fp, err := os.OpenFile(filepath.Join(rootDir, "20190304.data"), os.O_CREATE|os.O_RDWR, 0o600)
	require.Nil(t, err)
	defer fp.Close()
	require.Nil(t, fp.Truncate(1024*1024))
	require.Nil(t, writeBuffer(fp, 300))
	require.Nil(t, fp.Sync())

	du := metrics.DiskUsage(rootDir)
	assert.Greater(t, du, int64(0))
	// a sparse file uses far less than its apparent size
	assert.Less(t, du, int64(1024*1024))
}

func TestStartDiskUsageMonitor(t *testing.T) {
	t.Parallel()
	rootDir := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(rootDir, "20190304.indx"), make([]byte, 100), 0o600))

	m := &mockMetricsSetter{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		metrics.StartDiskUsageMonitor(ctx, m, rootDir, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	v, calls := m.get()
	assert.Equal(t, float64(metrics.DiskUsage(rootDir)), v)
	assert.GreaterOrEqual(t, calls, 2)
}

func writeBuffer(fp *os.File, size int) error {
	// fill bytes
	b := make([]byte, size)
	for i := 0; i < size; i++ {
		b[i] = 1
	}

	if _, err := fp.WriteAt(b, 0); err != nil {
		return err
	}

	return nil
}
