package shaper

import (
	"context"
	"testing"
	"time"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ ms int64 }

func (f *fakeClock) NowMs() int64 { return f.ms }

type fakeTelem struct {
	mcs, width int
	sampledAt  time.Time
	err        error
}

func (f *fakeTelem) Read(ctx context.Context) (int, int, time.Time, error) {
	return f.mcs, f.width, f.sampledAt, f.err
}

type fakeQoS struct {
	installs int
	changes  []domain.TrafficClass
}

func (f *fakeQoS) InstallTree(ctx context.Context, iface string, classes [4]domain.TrafficClass, rootKbps int) error {
	f.installs++
	return nil
}
func (f *fakeQoS) ChangeClass(ctx context.Context, iface string, class domain.TrafficClass) error {
	f.changes = append(f.changes, class)
	return nil
}

func newShaperFixture() (*Shaper, *fakeClock, *fakeTelem, *fakeQoS) {
	clock := &fakeClock{}
	telem := &fakeTelem{mcs: 5, width: 20}
	qos := &fakeQoS{}
	cfg := DefaultConfig()
	s := New(cfg, telem, qos, nil, clock)
	return s, clock, telem, qos
}

func TestFirstTickAppliesImmediately(t *testing.T) {
	s, clock, telem, qos := newShaperFixture()
	telem.sampledAt = time.UnixMilli(0)
	clock.ms = 0
	require.NoError(t, s.Tick(context.Background()))
	require.Equal(t, 4, len(qos.changes), "one ChangeClass call per traffic class")
	require.Equal(t, 24960, s.Snapshot().Smoothed)
}

func TestHysteresisBlocksSmallChange(t *testing.T) {
	s, clock, telem, qos := newShaperFixture()
	telem.sampledAt = time.UnixMilli(0)
	require.NoError(t, s.Tick(context.Background()))
	applied := len(qos.changes)

	// Small bump in MCS: capacity changes by a few percent, under
	// hysteresis_pct, must not re-apply.
	telem.mcs = 6
	clock.ms = 100
	telem.sampledAt = time.UnixMilli(100)
	require.NoError(t, s.Tick(context.Background()))
	require.Equal(t, applied, len(qos.changes), "sub-threshold change must not apply")
}

func TestHysteresisAppliesAfterHoldAndDwell(t *testing.T) {
	s, clock, telem, qos := newShaperFixture()
	telem.sampledAt = time.UnixMilli(0)
	require.NoError(t, s.Tick(context.Background()))
	firstApply := s.lastApplyMs

	// Large drop: mcs 5 -> 0 at width 20 swings alloc well past hysteresis_pct.
	telem.mcs = 0
	clock.ms = 50
	telem.sampledAt = time.UnixMilli(50)
	require.NoError(t, s.Tick(context.Background())) // starts the hold timer, no apply yet
	applyCountBeforeHold := len(qos.changes)

	clock.ms = 50 + s.cfg.HysteresisHoldMs - 1
	require.NoError(t, s.Tick(context.Background()))
	require.Equal(t, applyCountBeforeHold, len(qos.changes), "must wait out the full hold window")

	clock.ms = 50 + s.cfg.HysteresisHoldMs + s.cfg.MinDwellMs
	require.NoError(t, s.Tick(context.Background()))
	require.Greater(t, len(qos.changes), applyCountBeforeHold)
	require.Greater(t, s.lastApplyMs, firstApply)
}

func TestStaleTelemetryFallsBackToDefaults(t *testing.T) {
	s, clock, telem, _ := newShaperFixture()
	telem.mcs, telem.width = 5, 40
	telem.sampledAt = time.UnixMilli(0)
	clock.ms = 0
	require.NoError(t, s.Tick(context.Background()))
	require.Equal(t, 5, s.Snapshot().Sample.MCS)

	clock.ms = s.cfg.StaleMs + 1
	require.NoError(t, s.Tick(context.Background()))
	require.Equal(t, 0, s.Snapshot().Sample.MCS)
	require.Equal(t, 20, s.Snapshot().Sample.WidthMHz)
}

func TestReloadForcesNextApply(t *testing.T) {
	s, clock, telem, qos := newShaperFixture()
	telem.sampledAt = time.UnixMilli(0)
	require.NoError(t, s.Tick(context.Background()))
	applied := len(qos.changes)

	clock.ms = 10
	telem.sampledAt = time.UnixMilli(10)
	require.NoError(t, s.Tick(context.Background()))
	require.Equal(t, applied, len(qos.changes), "unchanged telemetry must not re-apply")

	s.SetConfig(s.cfg)
	clock.ms = 20
	require.NoError(t, s.Tick(context.Background()))
	require.Greater(t, len(qos.changes), applied, "reload must force the next apply")
}
