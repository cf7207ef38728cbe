package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/utils/test"
)

func TestCheckProduct(t *testing.T) {
	root := t.TempDir()
	good := test.MakeProductDir(root, "spdb/metar")
	bad := test.MakeProductDir(root, "spdb/taf")
	test.MakeDayFiles(good, test.Day0, 5)
	test.MakeDayFiles(good, test.At(1, 0), 3)
	test.MakeDayFiles(bad, test.Day0, 4)

	f, err := os.OpenFile(filepath.Join(bad, "20190304.data"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.Nil(t, err)
	_, err = f.Write([]byte("xyz"))
	require.Nil(t, err)
	require.Nil(t, f.Close())

	r := checkProduct(good)
	require.Nil(t, r.err)
	assert.Equal(t, 2, r.days)
	assert.Empty(t, r.problems)

	r = checkProduct(bad)
	require.Nil(t, r.err)
	assert.Equal(t, 1, r.days)
	require.Len(t, r.problems, 1)
	assert.Contains(t, r.problems[0].Msg, "!= data file size 7")

	dayStart = "20190305"
	r = checkProduct(good)
	dayStart = ""
	assert.Equal(t, 1, r.days)

	rootDirPath, parallel = root, 2
	assert.NotNil(t, executeIntegrity(Cmd, nil))
}
