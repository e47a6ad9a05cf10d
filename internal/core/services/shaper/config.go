package shaper

// Config is the traffic shaper's tunable policy, loaded from the INI file's
// [general]/[marks]/[floors] sections.
type Config struct {
	Wlan          string
	TelemFile     string
	KeyMCS        string
	KeyWidth      string
	StaleMs       int64
	Alpha         float64
	HysteresisPct int
	HysteresisHoldMs int64
	MinDwellMs    int64
	HeadroomPct   int
	CeilMarginPct int

	Eff10, Eff20, Eff40 float64

	MarkVideo, MarkMavlink, MarkTunnel, MarkDefault int

	VideoFloorKbps, VideoCeilMaxKbps       int
	MavFloorKbps, MavMinFloorKbps, MavCeilMaxKbps int
	TunFloorKbps, TunCeilMaxKbps            int
	DefFloorKbps, DefCeilMaxKbps            int

	RootKbps int
}

// DefaultConfig mirrors the teacher-adjacent original's defaults, per
// original_source/src/trafficctrl.c cfg_defaults().
func DefaultConfig() Config {
	return Config{
		Wlan:             "wlan0",
		TelemFile:        "/tmp/aalink_ext.msg",
		KeyMCS:           "mcs",
		KeyWidth:         "width",
		StaleMs:          2500,
		Alpha:            0.5,
		HysteresisPct:    15,
		HysteresisHoldMs: 800,
		MinDwellMs:       800,
		HeadroomPct:      20,
		CeilMarginPct:    15,
		Eff10:            0.55,
		Eff20:            0.60,
		Eff40:            0.58,
		MarkVideo:        1,
		MarkMavlink:      10,
		MarkTunnel:       20,
		MarkDefault:      100,
		VideoFloorKbps:    2000,
		VideoCeilMaxKbps:  120000,
		MavFloorKbps:      300,
		MavMinFloorKbps:   150,
		MavCeilMaxKbps:    2000,
		TunFloorKbps:      200,
		TunCeilMaxKbps:    3000,
		DefFloorKbps:      5,
		DefCeilMaxKbps:    500,
		RootKbps:          100000,
	}
}
