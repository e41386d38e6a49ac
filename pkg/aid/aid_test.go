package aid

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	at := time.Date(2023, 9, 14, 12, 30, 45, 123_000_000, time.UTC)
	id := New(at)
	got, err := Timestamp(id)
	require.NoError(t, err)
	assert.Equal(t, at, got)
}

func TestIdsSortChronologically(t *testing.T) {
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		ids = append(ids, New(base.Add(time.Duration(i)*time.Hour)))
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted)
}

func TestTimestampMalformed(t *testing.T) {
	_, err := Timestamp("short")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Timestamp("!!!!!!!!xx")
	assert.ErrorIs(t, err, ErrMalformed)
}
