package ldata_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/utils/ldata"
)

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	in := &ldata.Info{
		LatestTime:  1551700000,
		RelDataPath: "20190304.indx",
		Writer:      "metar_ingest",
		DataType:    "spdb",
	}
	require.Nil(t, ldata.Write(dir, in))
	assert.NotZero(t, in.WriteTime)

	out, err := ldata.Read(dir)
	require.Nil(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, int64(1551700000), out.LatestValidTime())

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.Nil(t, err)
	assert.Len(t, entries, 1)
}

func TestForecastValidTime(t *testing.T) {
	info := ldata.Info{LatestTime: 1000, LeadTime: 3600, IsForecast: true}
	assert.Equal(t, int64(4600), info.LatestValidTime())
}

func TestReadMissing(t *testing.T) {
	_, err := ldata.Read(t.TempDir())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadGarbage(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(dir, ldata.FileName), []byte("latest_time: [\n"), 0o644))
	_, err := ldata.Read(dir)
	assert.NotNil(t, err)
}
