package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFiletimeRoundTrip(t *testing.T) {
	when := time.Date(2021, time.October, 21, 12, 34, 56, 700, time.UTC)
	ft := TimeToFiletime(when)
	back := FiletimeToTime(ft)
	assert.True(t, back.Sub(when).Abs() < time.Microsecond)
}

func TestFiletimeToTime_PreUnixEpoch(t *testing.T) {
	// FILETIME zero is 1601-01-01; anything at or before the Unix epoch
	// collapses to the epoch instead of going negative.
	assert.Equal(t, time.Unix(0, 0).UTC(), FiletimeToTime(0))
	assert.Equal(t, time.Unix(0, 0).UTC(), FiletimeToTime(1))
}

func TestFiletimeToTime_KnownValue(t *testing.T) {
	// 0x01D7C6A0E5B2C000 is 2021-10-21T17:27:18Z.
	got := FiletimeToTime(0x01D7C6A0E5B2C000)
	assert.Equal(t, 2021, got.Year())
	assert.Equal(t, time.October, got.Month())
}
