// Package shaper implements the adaptive HTB rate allocator (T): telemetry
// driven PHY-capacity estimation, EWMA smoothing, percentage/time hysteresis,
// and the four-class floor/ceiling allocation.
package shaper

import (
	"context"
	"log"
	"math"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/core/ports"
)

// Shaper owns the EWMA state and last-applied value across ticks. Not safe
// for concurrent use outside the owning tick loop; HTTP handlers read
// snapshots via Snapshot(), never mutate shaper state directly (spec.md §5).
type Shaper struct {
	cfg Config

	telem ports.TelemetryReader
	qos   ports.QoSController
	audit ports.AuditRepository
	clock ports.Clock

	sEWMA        float64
	haveEWMA     bool
	lastApplied  int
	lastSample   domain.CapacitySample
	pctOverSince int64
	lastApplyMs  int64
	rates        domain.Rates
}

// New builds a Shaper with the given policy and adapters.
func New(cfg Config, telem ports.TelemetryReader, qos ports.QoSController, audit ports.AuditRepository, clock ports.Clock) *Shaper {
	return &Shaper{cfg: cfg, telem: telem, qos: qos, audit: audit, clock: clock, lastApplied: -1}
}

// SetConfig replaces the policy and forces the next Tick to apply
// regardless of hysteresis, per spec.md §4.2 reload semantics.
func (s *Shaper) SetConfig(cfg Config) {
	s.cfg = cfg
	s.lastApplied = -1
}

// Snapshot is the live view exposed over /api/v1/status.
type Snapshot struct {
	Sample      domain.CapacitySample
	Smoothed    int
	Rates       domain.Rates
	LastApplyMs int64
}

func (s *Shaper) Snapshot() Snapshot {
	return Snapshot{Sample: s.lastSample, Smoothed: int(math.Round(s.sEWMA)), Rates: s.rates, LastApplyMs: s.lastApplyMs}
}

// Tick runs one "telemetry read -> capacity compute -> smoothing ->
// hysteresis -> (maybe apply)" cycle, in that order, per spec.md §5.
func (s *Shaper) Tick(ctx context.Context) error {
	mcs, width, sampledAt, err := s.telem.Read(ctx)
	nowMs := s.clock.NowMs()
	stale := err != nil || nowMs-sampledAt.UnixMilli() > s.cfg.StaleMs
	if stale {
		mcs, width = 0, 20
	}

	usable, alloc := s.cfg.Capacity(mcs, width)
	s.lastSample = domain.CapacitySample{MCS: mcs, WidthMHz: width, UsableKbps: usable, AllocKbps: alloc, TsMs: nowMs}

	if !s.haveEWMA {
		s.sEWMA = float64(alloc)
		s.haveEWMA = true
	} else {
		s.sEWMA = s.cfg.Alpha*float64(alloc) + (1-s.cfg.Alpha)*s.sEWMA
	}
	target := int(math.Round(s.sEWMA))

	if s.lastApplied < 0 {
		s.apply(ctx, target)
		return nil
	}

	base := s.lastApplied
	if base < 1 {
		base = 1
	}
	pctChange := math.Abs(float64(target-s.lastApplied)) * 100 / float64(base)

	if pctChange < float64(s.cfg.HysteresisPct) {
		s.pctOverSince = 0
		return nil
	}
	if s.pctOverSince == 0 {
		s.pctOverSince = nowMs
		return nil
	}
	if nowMs-s.pctOverSince < s.cfg.HysteresisHoldMs {
		return nil
	}
	if nowMs-s.lastApplyMs < s.cfg.MinDwellMs {
		return nil
	}

	s.apply(ctx, target)
	return nil
}

func (s *Shaper) apply(ctx context.Context, target int) {
	rates := s.cfg.Allocate(target)
	s.rates = rates
	s.lastApplied = target
	s.lastApplyMs = s.clock.NowMs()
	s.pctOverSince = 0

	for _, c := range rates.Classes() {
		if err := s.qos.ChangeClass(ctx, s.cfg.Wlan, c); err != nil {
			log.Printf("[shaper] class %s change failed (will retry next apply): %v", c.ClassID, err)
		}
	}
	log.Printf("[shaper] applied alloc=%dkbps video=%d mav=%d tun=%d def=%d", target,
		rates.Video.RateKbps, rates.Mavlink.RateKbps, rates.Tunnel.RateKbps, rates.Default.RateKbps)

	if s.audit != nil {
		if err := s.audit.RecordRateApply(ctx, rates); err != nil {
			log.Printf("[shaper] audit write failed: %v", err)
		}
	}
}

// InstallTree (re-)installs the HTB hierarchy. Call once at startup and
// again whenever a reload changes class floors/ceilings structurally.
func (s *Shaper) InstallTree(ctx context.Context) error {
	rates := s.cfg.Allocate(s.cfg.RootKbps)
	if err := s.qos.InstallTree(ctx, s.cfg.Wlan, rates.Classes(), s.cfg.RootKbps); err != nil {
		return err
	}
	s.lastApplied = -1 // force next Tick to apply regardless of hysteresis
	return nil
}
