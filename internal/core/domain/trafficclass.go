package domain

// ClassKind identifies one of the four fixed traffic classes.
type ClassKind string

const (
	ClassVideo   ClassKind = "video"
	ClassMavlink ClassKind = "mavlink"
	ClassTunnel  ClassKind = "tunnel"
	ClassDefault ClassKind = "default"
)

// TrafficClass is one HTB leaf: its firewall mark, classid, and current
// rate/ceil/floor bounds. Rate <= Ceil; Ceil <= CeilMax unless Rate itself
// exceeds CeilMax. FloorKbps holds the configured floor: when the budget is
// below the sum of floors, Rate is that floor scaled down and lies below it.
type TrafficClass struct {
	Kind     ClassKind
	Mark     int
	ClassID  string
	Priority int

	FloorKbps   int
	CeilMaxKbps int

	RateKbps int
	CeilKbps int
}

// CapacitySample is one telemetry-derived PHY capacity observation.
type CapacitySample struct {
	MCS        int
	WidthMHz   int
	PHYMbps    float64
	Eff        float64
	UsableKbps int
	AllocKbps  int
	TsMs       int64
}

// Rates is the result of the allocation algorithm: the rate/ceil pair for
// each of the four classes, plus the total budget they were computed from.
type Rates struct {
	Video   TrafficClass
	Mavlink TrafficClass
	Tunnel  TrafficClass
	Default TrafficClass

	AllocTotalKbps int
}

// Classes returns the four classes in a stable, fixed order (video, mavlink,
// tunnel, default) — the order marks and classids are installed/changed in.
func (r Rates) Classes() [4]TrafficClass {
	return [4]TrafficClass{r.Video, r.Mavlink, r.Tunnel, r.Default}
}
