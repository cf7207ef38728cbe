package log_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alpacahq/chunkstore/utils/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DEBUG,
		"INFO":    log.INFO,
		"":        log.INFO,
		"warning": log.WARNING,
		"warn":    log.WARNING,
		"Error":   log.ERROR,
		"fatal":   log.FATAL,
	}
	for in, want := range tests {
		got, err := log.ParseLevel(in)
		assert.Nil(t, err, in)
		assert.Equal(t, want, got, in)
	}

	lvl, err := log.ParseLevel("loud")
	assert.NotNil(t, err)
	assert.Equal(t, log.INFO, lvl)
}

func TestSetLevel(t *testing.T) {
	prev := log.GetLevel()
	defer log.SetLevel(prev)

	log.SetLevel(log.ERROR)
	assert.Equal(t, log.ERROR, log.GetLevel())
	assert.Equal(t, "error", log.GetLevel().String())
	// filtered out, must not panic
	log.Info("dropped %d", 1)
}
