package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/utils"
)

func TestDayArithmetic(t *testing.T) {
	ts := time.Date(2019, 3, 4, 13, 27, 41, 0, time.UTC).Unix()
	start := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC).Unix()

	assert.Equal(t, start, utils.DayStart(ts))
	assert.Equal(t, start+86399, utils.DayEnd(ts))
	assert.Equal(t, 13*60+27, utils.MinuteOfDay(ts))
	assert.Equal(t, 0, utils.MinuteOfDay(start))
	assert.Equal(t, 1439, utils.MinuteOfDay(start+86399))
	assert.Equal(t, "20190304", utils.DayName(ts))

	parsed, err := utils.ParseDayName("20190304")
	require.Nil(t, err)
	assert.Equal(t, start, parsed)

	_, err = utils.ParseDayName("2019030")
	assert.NotNil(t, err)

	// before the epoch
	assert.Equal(t, int64(-86400), utils.DayStart(-1))
	assert.Equal(t, int64(-86400), utils.DayStart(-86400))
}

func TestDataDir(t *testing.T) {
	d := utils.NewDataDir("/data")
	assert.Equal(t, "/data/spdb/metar", d.Resolve("spdb/metar"))
	assert.Equal(t, "/tmp/x", d.Resolve("/tmp/x"))
	assert.Equal(t, "x", d.Resolve("./x"))
	assert.Equal(t, "spdb/metar", d.Rel("/data/spdb/metar"))
	assert.Equal(t, "/elsewhere", d.Rel("/elsewhere"))

	t.Setenv(utils.EnvDataDir, "/env")
	assert.Equal(t, "/env/a", utils.NewDataDir("").Resolve("a"))
}
