package compress_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/chunkstore/utils/compress"
)

func payload() []byte {
	return bytes.Repeat([]byte("METAR KDEN 041353Z 17008KT 10SM FEW080 SCT150 06/M08 A3002 "), 40)
}

func TestRoundTrip(t *testing.T) {
	data := payload()
	for _, kind := range []compress.Kind{compress.Gzip, compress.Bzip2, compress.Zstd, compress.LZ4} {
		t.Run(kind.String(), func(t *testing.T) {
			packed, err := compress.Compress(kind, data)
			require.Nil(t, err)
			assert.Less(t, len(packed), len(data))
			assert.True(t, compress.IsCompressed(packed))
			assert.Equal(t, kind, compress.Detect(packed))

			out, detected, err := compress.Decompress(packed)
			require.Nil(t, err)
			assert.Equal(t, kind, detected)
			assert.Equal(t, data, out)

			out, err = compress.DecompressKind(kind, packed)
			require.Nil(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestNotSmaller(t *testing.T) {
	_, err := compress.Compress(compress.Gzip, []byte("ab"))
	assert.Equal(t, compress.ErrNotSmaller, err)

	out, err := compress.Compress(compress.None, []byte("ab"))
	require.Nil(t, err)
	assert.Equal(t, []byte("ab"), out)
}

func TestDetectPlain(t *testing.T) {
	assert.False(t, compress.IsCompressed([]byte("SPECI KORD")))
	assert.False(t, compress.IsCompressed(nil))
	// "BZh" without a block size digit is text
	assert.False(t, compress.IsCompressed([]byte("BZhello")))

	out, kind, err := compress.Decompress([]byte("plain"))
	require.Nil(t, err)
	assert.Equal(t, compress.None, kind)
	assert.Equal(t, []byte("plain"), out)
}

func TestDecompressCorrupt(t *testing.T) {
	_, _, err := compress.Decompress([]byte{0x1f, 0x8b, 0x00, 0x01, 0x02})
	assert.NotNil(t, err)
}

func TestParseKind(t *testing.T) {
	for _, kind := range []compress.Kind{compress.None, compress.Gzip, compress.Bzip2, compress.Zstd, compress.LZ4} {
		parsed, err := compress.ParseKind(kind.String())
		require.Nil(t, err)
		assert.Equal(t, kind, parsed)
	}
	_, err := compress.ParseKind("rar")
	assert.NotNil(t, err)
	assert.Equal(t, "unknown(9)", compress.Kind(9).String())
}
