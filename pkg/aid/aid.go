// Package aid generates timestamp-sortable entity ids. The first eight
// characters are the milliseconds since 2000-01-01 UTC in base36, so ids sort
// chronologically as plain strings and the creation time can be recovered
// without a lookup. Two random base36 characters break ties.
package aid

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// epoch is 2000-01-01T00:00:00Z in Unix milliseconds.
const epoch = int64(946684800000)

const timeLen = 8

var ErrMalformed = errors.New("aid: malformed id")

// New returns an id whose prefix encodes t.
func New(t time.Time) string {
	ms := t.UnixMilli() - epoch
	if ms < 0 {
		ms = 0
	}
	ts := strconv.FormatInt(ms, 36)
	if len(ts) < timeLen {
		ts = strings.Repeat("0", timeLen-len(ts)) + ts
	}
	return ts + noise(2)
}

// Timestamp recovers the creation time encoded in id.
func Timestamp(id string) (time.Time, error) {
	if len(id) < timeLen {
		return time.Time{}, ErrMalformed
	}
	ms, err := strconv.ParseInt(id[:timeLen], 36, 64)
	if err != nil {
		return time.Time{}, ErrMalformed
	}
	return time.UnixMilli(ms + epoch).UTC(), nil
}

func noise(n int) string {
	const chars = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(chars[v.Int64()])
	}
	return b.String()
}
