package outputcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSystemClockNowIsUTC(t *testing.T) {
	now := systemClock{}.Now()
	require.Equal(t, time.UTC, now.Location())
	require.WithinDuration(t, time.Now(), now, time.Second)
}
