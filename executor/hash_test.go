package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alpacahq/chunkstore/executor"
)

func TestHash4Chars(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"KDEN", "EGL", "A", "zz9"} {
		h := executor.Hash4CharsToInt32(id)
		assert.NotEqual(t, int32(0), h)
		assert.Equal(t, id, executor.DehashInt32To4Chars(h))
	}
	assert.Equal(t, int32(0), executor.Hash4CharsToInt32(""))
	assert.Equal(t, "KDEN", executor.DehashInt32To4Chars(executor.Hash4CharsToInt32("KDENVER")))
	assert.Equal(t, int32('K')|int32('D')<<8, executor.Hash4CharsToInt32("KD"))
}

func TestHash5Chars(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"KDEN1", "a-b", "Z", "09az"} {
		h := executor.Hash5CharsToInt32(id)
		assert.Less(t, h, int32(0))
		assert.Equal(t, id, executor.DehashInt32To5Chars(h))
	}
	assert.Equal(t, int32(-1), executor.Hash5CharsToInt32(""))
	assert.Equal(t, "ABCDE", executor.DehashInt32To5Chars(executor.Hash5CharsToInt32("ABCDEF")))
	// characters outside the alphabet end the id
	assert.Equal(t, "AB", executor.DehashInt32To5Chars(executor.Hash5CharsToInt32("AB_CD")))
}
