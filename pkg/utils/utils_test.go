package utils

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id, err := u.NewULIDFromTimestamp(at)
	require.NoError(t, err)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(at.UnixMilli()), parsed.Time())

	later, err := u.NewULIDFromTimestamp(at.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Less(t, id, later)
}
