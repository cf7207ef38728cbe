package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/log"
)

const sampleConfig = `
root_directory: /project/data
app_name: metar_ingest
log_level: warning
put_mode: add_unique
compress_on_put: GZIP
uncompress_on_get: false
enable_defrag: false
respect_zero_types: true
lead_time_storage: data_type2
metrics_listen: ":8325"
disk_usage_interval: 30
`

func TestParseConfig(t *testing.T) {
	defer log.SetLevel(log.INFO)

	cfg, err := utils.ParseConfig([]byte(sampleConfig))
	require.Nil(t, err)

	assert.Equal(t, "/project/data", cfg.RootDirectory)
	assert.Equal(t, "metar_ingest", cfg.AppName)
	assert.Equal(t, log.WARNING, cfg.LogLevel)
	assert.Equal(t, utils.PutAddUnique, cfg.PutMode)
	assert.Equal(t, "gzip", cfg.CompressOnPut)
	assert.False(t, cfg.UncompressOnGet)
	assert.False(t, cfg.EnableDefrag)
	assert.True(t, cfg.RespectZeroTypes)
	assert.False(t, cfg.IgnoreLock)
	assert.Equal(t, utils.LeadTimeInDataType2, cfg.LeadTimeStorage)
	assert.True(t, cfg.LatestDataMarker)
	assert.Equal(t, ":8325", cfg.MetricsListen)
	assert.Equal(t, 30*time.Second, cfg.DiskUsageInterval)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := utils.ParseConfig([]byte("root_directory: /d\n"))
	require.Nil(t, err)
	assert.Equal(t, utils.PutOver, cfg.PutMode)
	assert.Equal(t, "none", cfg.CompressOnPut)
	assert.True(t, cfg.UncompressOnGet)
	assert.True(t, cfg.EnableDefrag)
	assert.Equal(t, time.Minute, cfg.DiskUsageInterval)
}

func TestParseConfigErrors(t *testing.T) {
	t.Setenv(utils.EnvDataDir, "")

	_, err := utils.ParseConfig([]byte("app_name: x\n"))
	assert.NotNil(t, err)

	_, err = utils.ParseConfig([]byte("root_directory: /d\nput_mode: sometimes\n"))
	assert.NotNil(t, err)

	_, err = utils.ParseConfig([]byte("root_directory: /d\nlead_time_storage: nowhere\n"))
	assert.NotNil(t, err)

	_, err = utils.ParseConfig([]byte("root_directory: [\n"))
	assert.NotNil(t, err)
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv(utils.EnvDataDir, "/from/env")
	t.Setenv(utils.EnvAllowNoLock, "true")

	cfg, err := utils.ParseConfig([]byte("put_mode: once\n"))
	require.Nil(t, err)
	assert.Equal(t, "/from/env", cfg.RootDirectory)
	assert.True(t, cfg.IgnoreLock)
	assert.Equal(t, utils.PutOnce, cfg.PutMode)
}
