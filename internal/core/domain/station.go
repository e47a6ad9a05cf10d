package domain

// UnseenRSSI is the sentinel effective-RSSI value for a station that has not
// been observed, or that has failed the ping-liveness criterion.
const UnseenRSSI = -10000

// Station is a configured link-controller client, identified by (IP, MAC).
// Stations are created once at config load and never destroyed; their
// observed attributes are refreshed once per poll interval.
type Station struct {
	Iface string
	IP    string
	MAC   string

	RSSIDbm       int
	PingFailCount uint8
	OKStreak      uint8
}

// EffectiveRSSI returns the metric used for selection and hysteresis: the
// observed RSSI, unless the station has failed ping-liveness, in which case
// it is masked to UnseenRSSI.
func (s Station) EffectiveRSSI(pingFailMax uint8) int {
	if s.PingFailCount >= pingFailMax {
		return UnseenRSSI
	}
	return s.RSSIDbm
}

// RecordPingSuccess updates the streak/fail counters for a successful probe.
func (s *Station) RecordPingSuccess(pingFailMax uint8) {
	s.OKStreak = satAddU8(s.OKStreak, 1)
	if s.OKStreak >= pingFailMax {
		s.PingFailCount = 0
	} else if s.PingFailCount > 0 {
		s.PingFailCount--
	}
}

// RecordPingTimeout updates the streak/fail counters for a failed probe.
func (s *Station) RecordPingTimeout() {
	s.OKStreak = 0
	s.PingFailCount = satAddU8(s.PingFailCount, 1)
}

func satAddU8(v uint8, d uint8) uint8 {
	if int(v)+int(d) > 255 {
		return 255
	}
	return v + d
}

// RouteState tracks the link controller's current and candidate default
// gateway, and the start of the current hysteresis window.
type RouteState struct {
	ViaIP           string
	CandidateIP     string
	CandidateSinceMs int64
}

// State is the link controller's externally-observable lifecycle state.
type State string

const (
	StateInit      State = "INIT"
	StateSelected  State = "SELECTED"
	StateSearching State = "SEARCHING"
	StateDown      State = "DOWN"
)
