package tool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	t.Parallel()
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	got, err := parseTime("2024-03-01T12:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = parseTime("1709296200")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = parseTime("2024-03-01T14:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}
