// Package link implements the multi-client link-failover controller (L):
// RSSI + ping-liveness driven default-route selection with dual-axis
// hysteresis, plus a watchdog that re-applies the route under contention.
package link

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/core/ports"
)

// ErrNoViableStation is returned by Decide (informationally, never fatal)
// when every station's effective RSSI is at or below the "all links down"
// threshold.
var ErrNoViableStation = errors.New("link: no viable station")

const (
	// dumpBudget bounds the per-radio station dump regardless of PollMs,
	// per spec.md §4.1.
	dumpBudget = 300 * time.Millisecond
	// allDownThreshold is the "best <= this" cutoff below which the
	// controller clears the route entirely rather than picking a loser.
	allDownThreshold = -1000
)

// Controller owns the live station table and the route state machine. It is
// not safe for concurrent use — the owning process drives poll/decide/
// watchdog from a single cooperative loop, per spec.md §5.
type Controller struct {
	cfg Config

	stations []domain.Station
	route    domain.RouteState
	state    domain.State

	src   ports.StationSource
	ping  ports.Pinger // nil disables ping probing (privilege error, non-fatal)
	rc    ports.RouteController
	audit ports.AuditRepository
	clock ports.Clock
}

// New builds a Controller. ping may be nil if raw-socket creation failed at
// startup; the link is then steered by RSSI alone.
func New(cfg Config, src ports.StationSource, ping ports.Pinger, rc ports.RouteController, audit ports.AuditRepository, clock ports.Clock) *Controller {
	return &Controller{
		cfg:      cfg,
		stations: append([]domain.Station(nil), cfg.Stations...),
		state:    domain.StateInit,
		src:      src,
		ping:     ping,
		rc:       rc,
		audit:    audit,
		clock:    clock,
	}
}

// Stations returns a snapshot of the current station table.
func (c *Controller) Stations() []domain.Station {
	out := make([]domain.Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() domain.State { return c.state }

// Via returns the currently active gateway IP, or "" if none.
func (c *Controller) Via() string { return c.route.ViaIP }

// Poll refreshes every station's RSSI and ping status. It must complete
// within cfg.PollMs in steady state; the station dump itself is bounded to
// a fixed 300 ms budget independent of PollMs.
func (c *Controller) Poll(ctx context.Context) {
	byMAC, err := c.src.Dump(ctx, dumpBudget)
	if err != nil {
		log.Printf("[link] station dump failed: %v", err)
		byMAC = nil
	}

	for i := range c.stations {
		s := &c.stations[i]
		if rssi, ok := lookupCaseInsensitive(byMAC, s.MAC); ok {
			s.RSSIDbm = rssi
		} else {
			s.RSSIDbm = domain.UnseenRSSI
		}
		c.pollPing(ctx, s)
	}
}

func (c *Controller) pollPing(ctx context.Context, s *domain.Station) {
	if c.ping == nil {
		return
	}
	ok, err := c.ping.Probe(ctx, s.IP, time.Duration(c.cfg.PingToMs)*time.Millisecond)
	if err != nil {
		log.Printf("[link] ping %s: %v", s.IP, err)
	}
	if ok {
		s.RecordPingSuccess(c.cfg.PingFailMax)
	} else {
		s.RecordPingTimeout()
	}
}

func lookupCaseInsensitive(m map[string]int, mac string) (int, bool) {
	if m == nil {
		return 0, false
	}
	if v, ok := m[strings.ToLower(mac)]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, mac) {
			return v, true
		}
	}
	return 0, false
}

// Decide computes the next via_ip and commits a route change when the
// hysteresis window has elapsed. Call at least every cfg.HystMs.
func (c *Controller) Decide(ctx context.Context) error {
	if len(c.stations) == 0 {
		return nil
	}

	now := c.clock.NowMs()

	// 1. Sticky: keep the current via if it still clears the floor.
	if c.route.ViaIP != "" {
		if s, ok := c.stationByIP(c.route.ViaIP); ok {
			if s.EffectiveRSSI(c.cfg.PingFailMax) >= c.cfg.FloorDb {
				return nil
			}
			c.state = domain.StateSearching
		}
	}

	// 2. Find the best effective RSSI.
	best := domain.UnseenRSSI
	for _, s := range c.stations {
		if eff := s.EffectiveRSSI(c.cfg.PingFailMax); eff > best {
			best = eff
		}
	}
	if best <= allDownThreshold {
		if c.route.ViaIP != "" {
			c.clearRoute(ctx)
		}
		c.state = domain.StateDown
		return ErrNoViableStation
	}

	// 3. Candidate = last station whose (best - effective) < hyst_db.
	candidate := ""
	for _, s := range c.stations {
		if best-s.EffectiveRSSI(c.cfg.PingFailMax) < c.cfg.HystDb {
			candidate = s.IP
		}
	}
	if candidate == "" {
		return nil
	}

	// 4. Hysteresis window.
	if candidate != c.route.CandidateIP {
		c.route.CandidateIP = candidate
		c.route.CandidateSinceMs = now
		return nil
	}
	if now-c.route.CandidateSinceMs < c.cfg.HystMs {
		return nil
	}
	if candidate == c.route.ViaIP {
		c.route.CandidateSinceMs = 0
		c.state = domain.StateSelected
		return nil
	}

	c.commit(ctx, candidate)
	return nil
}

func (c *Controller) stationByIP(ip string) (domain.Station, bool) {
	for _, s := range c.stations {
		if s.IP == ip {
			return s, true
		}
	}
	return domain.Station{}, false
}

func (c *Controller) commit(ctx context.Context, ip string) {
	from := c.route.ViaIP
	c.route.ViaIP = ip
	c.route.CandidateSinceMs = 0

	if err := c.rc.SetDefault(ctx, ip, c.cfg.MasterIface); err != nil {
		log.Printf("[link] route install via %s failed (will retry via watchdog): %v", ip, err)
	}
	c.state = domain.StateSelected
	log.Printf("[link] switch via %s", ip)

	if c.audit != nil {
		if err := c.audit.RecordRouteSwap(ctx, from, ip, "hysteresis-commit"); err != nil {
			log.Printf("[link] audit write failed: %v", err)
		}
	}
}

func (c *Controller) clearRoute(ctx context.Context) {
	from := c.route.ViaIP
	c.route.ViaIP = ""
	c.route.CandidateIP = ""
	c.route.CandidateSinceMs = 0
	if err := c.rc.ClearDefault(ctx, c.cfg.MasterIface); err != nil {
		log.Printf("[link] route clear failed: %v", err)
	}
	log.Printf("[link] all stations below floor, route cleared")
	if c.audit != nil {
		if err := c.audit.RecordRouteSwap(ctx, from, "", "all-links-down"); err != nil {
			log.Printf("[link] audit write failed: %v", err)
		}
	}
}

// Watchdog verifies the kernel default route still matches (via_ip, master
// iface); if not, it re-installs it. Idempotent: repeated calls with no
// external interference make no further changes.
func (c *Controller) Watchdog(ctx context.Context) {
	if c.route.ViaIP == "" {
		return
	}
	ok, err := c.rc.DefaultMatches(ctx, c.route.ViaIP, c.cfg.MasterIface)
	if err != nil {
		log.Printf("[link] watchdog read failed: %v", err)
		return
	}
	if ok {
		return
	}
	log.Printf("[link] watchdog: route drifted, reinstalling via %s", c.route.ViaIP)
	if err := c.rc.SetDefault(ctx, c.route.ViaIP, c.cfg.MasterIface); err != nil {
		log.Printf("[link] watchdog reinstall failed: %v", err)
	}
}
