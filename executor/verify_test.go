package executor_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/test"
)

func TestVerifyCleanStore(t *testing.T) {
	t.Parallel()
	s, _ := setup(t)
	s.SetDefrag(false)
	s.SetPutMode(utils.PutAdd)
	for i := int64(0); i < 20; i++ {
		at := test.At(int(i%3), 3600*i)
		s.AddPutChunk(int32(i%4), 0, at, at.Add(30*time.Hour), test.Payload("KDEN", int(10+i)), "")
	}
	require.Nil(t, s.Put(product, 1, "metar"))

	s.SetPutMode(utils.PutOver)
	put(t, s, test.At(0, 0), 0, 0, "short")
	put(t, s, test.At(0, 3600), 1, 0, string(test.Payload("KDEN", 500)))
	require.Nil(t, s.Erase(product, test.At(1, 3600*7), 0, 0))

	problems, err := s.Verify(product)
	require.Nil(t, err)
	assert.Empty(t, problems)

	_, err = s.Defrag(product, test.Day0)
	require.Nil(t, err)
	problems, err = s.Verify(product)
	require.Nil(t, err)
	assert.Empty(t, problems)
}

func TestVerifyFindsProblems(t *testing.T) {
	t.Parallel()
	s, dir := setup(t)
	s.SetPutMode(utils.PutAdd)
	for i := int64(0); i < 3; i++ {
		at := test.At(0, 600*i)
		s.AddPutChunk(1, 0, at, at, []byte("abcd"), "")
	}
	require.Nil(t, s.Put(product, 1, "metar"))

	x := readIndex(t, dir, test.Day0)
	x.Refs[0], x.Refs[2] = x.Refs[2], x.Refs[0]
	x.Header.NBytesData = 99
	f, err := os.Create(catalog.IndexPath(dir, test.Day0.Unix()))
	require.Nil(t, err)
	require.Nil(t, io.WriteIndex(f, x))
	require.Nil(t, f.Close())

	problems, err := s.Verify(product)
	require.Nil(t, err)
	var msgs []string
	for _, p := range problems {
		msgs = append(msgs, p.Msg)
	}
	assert.Contains(t, msgs, fmt.Sprintf("ref 1: valid time %d before previous %d",
		test.At(0, 600).Unix(), test.At(0, 1200).Unix()))
	assert.Contains(t, msgs, "header counts 99 data bytes, references hold 12")

	_, err = s.Verify("spdb/none")
	assert.NotNil(t, err)
}
