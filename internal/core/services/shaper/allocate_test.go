package shaper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarioS3Allocation(t *testing.T) {
	cfg := DefaultConfig()
	usable, alloc := cfg.Capacity(5, 20)
	require.Equal(t, 31200, usable)
	require.Equal(t, 24960, alloc)

	rates := cfg.Allocate(alloc)
	require.Equal(t, 24455, rates.Video.RateKbps)
	require.Equal(t, 300, rates.Mavlink.RateKbps)
	require.Equal(t, 200, rates.Tunnel.RateKbps)
	require.Equal(t, 5, rates.Default.RateKbps)
	require.Equal(t, 24960, rates.Video.CeilKbps)
}

// TestScenarioS4BelowFloorSum follows spec.md §8 scenario S4's allocation
// below the floor sum. The allocator truncates (int cast) the same way the
// original C source does; the spec's illustrative numbers round 200*scale
// up to 120 where truncation gives 119 — see DESIGN.md for the resolution.
func TestScenarioS4BelowFloorSum(t *testing.T) {
	cfg := DefaultConfig()
	rates := cfg.Allocate(1500)
	require.Equal(t, 179, rates.Mavlink.RateKbps, "scaled mavlink share, floored at MavMinFloorKbps if lower")
	require.Equal(t, 119, rates.Tunnel.RateKbps)
	require.Equal(t, 2, rates.Default.RateKbps)
	require.Equal(t, 1500-(179+119+2), rates.Video.RateKbps)
	require.GreaterOrEqual(t, rates.Mavlink.RateKbps, cfg.MavMinFloorKbps)
}

func TestAllocateNeverExceedsBudget(t *testing.T) {
	cfg := DefaultConfig()
	for _, alloc := range []int{100, 500, 1500, 2505, 5000, 24960, 120000} {
		r := cfg.Allocate(alloc)
		sum := r.Video.RateKbps + r.Mavlink.RateKbps + r.Tunnel.RateKbps + r.Default.RateKbps
		require.LessOrEqual(t, sum, alloc, "alloc=%d", alloc)
		require.GreaterOrEqual(t, r.Mavlink.RateKbps, cfg.MavMinFloorKbps)
	}
}

func TestCapacityWidths(t *testing.T) {
	cfg := DefaultConfig()
	u20, _ := cfg.Capacity(7, 20)
	u40, _ := cfg.Capacity(7, 40)
	u10, _ := cfg.Capacity(7, 10)
	require.Greater(t, u40, u20)
	require.Less(t, u10, u20)
}
