// Package ports defines the capability interfaces the core services depend
// on, so that business logic (internal/core/services/...) can be exercised
// against fakes without touching the kernel routing table, tc, or a socket.
package ports

import (
	"context"
	"time"

	"github.com/snokvist/fpvcore/internal/core/domain"
)

// RouteController mutates and inspects the host default route. Implementations
// invoke the host's routing utilities; any equivalent means is acceptable
// per spec.md §6.
type RouteController interface {
	SetDefault(ctx context.Context, gwIP, iface string) error
	ClearDefault(ctx context.Context, iface string) error
	DefaultMatches(ctx context.Context, gwIP, iface string) (bool, error)
}

// QoSController installs and mutates the HTB class hierarchy.
type QoSController interface {
	InstallTree(ctx context.Context, iface string, classes [4]domain.TrafficClass, rootKbps int) error
	ChangeClass(ctx context.Context, iface string, class domain.TrafficClass) error
}

// StationSource reports live RSSI for a set of configured stations, keyed by
// MAC (case-insensitive). Implementations must respect the supplied budget
// and abort any underlying subprocess once it elapses.
type StationSource interface {
	Dump(ctx context.Context, budget time.Duration) (map[string]int, error)
}

// Pinger probes a single IPv4 target once and reports liveness.
type Pinger interface {
	Probe(ctx context.Context, ip string, timeout time.Duration) (bool, error)
}

// TelemetryReader reads the shaper's capacity-relevant telemetry file.
type TelemetryReader interface {
	Read(ctx context.Context) (mcs, widthMHz int, sampledAt time.Time, err error)
}

// AuditRepository records control-plane transitions for later inspection.
// Implementations must not block the calling tick for longer than a local
// write; callers treat a failing write as non-fatal.
type AuditRepository interface {
	RecordRouteSwap(ctx context.Context, fromIP, toIP, reason string) error
	RecordRateApply(ctx context.Context, r domain.Rates) error
	Close() error
}

// Clock abstracts time so decision/hysteresis logic is deterministically
// testable; NowMs returns wall-clock milliseconds since the Unix epoch. It
// is not monotonic: the shaper compares it against the telemetry file's
// modification time.
type Clock interface {
	NowMs() int64
}
