package profiling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackAndTopN(t *testing.T) {
	ResetFrame()
	mu.Lock()
	timings["fast"] = 1500 * time.Microsecond
	timings["slow"] = 4 * time.Millisecond
	timings["mid"] = 2100 * time.Microsecond
	mu.Unlock()

	assert.Equal(t, "slow:4ms, mid:2.1ms", TopN(2))
	assert.Equal(t, "slow:4ms, mid:2.1ms, fast:1.5ms", TopN(10))

	stop := Track("tracked")
	stop()
	_, ok := Snapshot()["tracked"]
	assert.True(t, ok)
}

func TestCountersAndSummary(t *testing.T) {
	ResetFrame()
	Count("draws", 3)
	Count("draws", 2)
	Count("passes", 4)
	mu.Lock()
	timings["frame"] = 16 * time.Millisecond
	mu.Unlock()

	assert.Equal(t, map[string]int{"draws": 5, "passes": 4}, Counters())
	assert.Equal(t, []string{"frame 16ms", "draws 5", "passes 4"}, Summary(5))

	ResetFrame()
	require.Empty(t, Snapshot())
	require.Empty(t, Counters())
}
