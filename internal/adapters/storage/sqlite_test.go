package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestRecordRouteSwapAndRateApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	repo, err := New(path)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.RecordRouteSwap(ctx, "", "10.0.0.2", "initial selection"))
	require.NoError(t, repo.RecordRouteSwap(ctx, "10.0.0.2", "10.0.0.3", "hysteresis commit"))

	rates := domain.Rates{
		Video:   domain.TrafficClass{Kind: domain.ClassVideo, RateKbps: 24455, CeilKbps: 24960},
		Mavlink: domain.TrafficClass{Kind: domain.ClassMavlink, RateKbps: 300, CeilKbps: 2000},
		Tunnel:  domain.TrafficClass{Kind: domain.ClassTunnel, RateKbps: 200, CeilKbps: 3000},
		Default: domain.TrafficClass{Kind: domain.ClassDefault, RateKbps: 5, CeilKbps: 500},
		AllocTotalKbps: 24960,
	}
	require.NoError(t, repo.RecordRateApply(ctx, rates))

	swaps, err := repo.RecentRouteSwaps(ctx, 10)
	require.NoError(t, err)
	require.Len(t, swaps, 2)
	require.Equal(t, "10.0.0.3", swaps[0].ToIP, "most recent swap first")
}
