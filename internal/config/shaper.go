package config

import (
	"flag"

	"github.com/snokvist/fpvcore/internal/core/services/shaper"
	"github.com/snokvist/fpvcore/internal/iniconf"
)

// ShaperProcess holds trafficctrl's process-level knobs.
type ShaperProcess struct {
	CfgPath  string
	HTTPAddr string
	DBPath   string
	Debug    bool
}

func LoadShaperProcess() *ShaperProcess {
	p := &ShaperProcess{}
	p.CfgPath = getEnv("TRAFFICCTRL_CONF", "/etc/trafficctrl.conf")
	p.HTTPAddr = getEnv("TRAFFICCTRL_ADDR", ":8081")
	p.DBPath = getEnv("TRAFFICCTRL_DB", "/tmp/trafficctrl.db")

	flag.StringVar(&p.CfgPath, "conf", p.CfgPath, "path to trafficctrl.conf")
	flag.StringVar(&p.HTTPAddr, "addr", p.HTTPAddr, "HTTP API server address")
	flag.StringVar(&p.DBPath, "db", p.DBPath, "path to the SQLite audit log")
	flag.BoolVar(&p.Debug, "debug", false, "enable verbose logging")
	flag.Parse()
	return p
}

// LoadShaperConfig reads [general]/[marks]/[floors] sections into a
// shaper.Config seeded from shaper.DefaultConfig, mirroring
// trafficctrl.c's cfg_defaults()-then-override loader.
func LoadShaperConfig(path string) (shaper.Config, error) {
	f, err := iniconf.Load(path)
	if err != nil {
		return shaper.Config{}, err
	}
	cfg := shaper.DefaultConfig()

	cfg.Wlan = f.GetString("general", "wlan", cfg.Wlan)
	cfg.TelemFile = f.GetString("general", "telemetry_file", cfg.TelemFile)
	cfg.KeyMCS = f.GetString("general", "key_mcs", cfg.KeyMCS)
	cfg.KeyWidth = f.GetString("general", "key_width", cfg.KeyWidth)
	cfg.StaleMs = f.GetInt64("general", "stale_ms", cfg.StaleMs)
	cfg.Alpha = f.GetFloat("general", "alpha", cfg.Alpha)
	cfg.HysteresisPct = f.GetInt("general", "hysteresis_pct", cfg.HysteresisPct)
	cfg.HysteresisHoldMs = f.GetInt64("general", "hysteresis_hold_ms", cfg.HysteresisHoldMs)
	cfg.MinDwellMs = f.GetInt64("general", "min_dwell_ms", cfg.MinDwellMs)
	cfg.HeadroomPct = f.GetInt("general", "headroom_pct", cfg.HeadroomPct)
	cfg.CeilMarginPct = f.GetInt("general", "ceil_margin_pct", cfg.CeilMarginPct)
	cfg.Eff10 = f.GetFloat("general", "eff_10", cfg.Eff10)
	cfg.Eff20 = f.GetFloat("general", "eff_20", cfg.Eff20)
	cfg.Eff40 = f.GetFloat("general", "eff_40", cfg.Eff40)
	cfg.RootKbps = f.GetInt("general", "root_kbps", cfg.RootKbps)

	cfg.MarkVideo = f.GetInt("marks", "video", cfg.MarkVideo)
	cfg.MarkMavlink = f.GetInt("marks", "mavlink", cfg.MarkMavlink)
	cfg.MarkTunnel = f.GetInt("marks", "tunnel", cfg.MarkTunnel)
	cfg.MarkDefault = f.GetInt("marks", "default", cfg.MarkDefault)

	cfg.VideoFloorKbps = f.GetInt("floors", "video_floor_kbps", cfg.VideoFloorKbps)
	cfg.VideoCeilMaxKbps = f.GetInt("floors", "video_ceil_max_kbps", cfg.VideoCeilMaxKbps)
	cfg.MavFloorKbps = f.GetInt("floors", "mavlink_floor_kbps", cfg.MavFloorKbps)
	cfg.MavMinFloorKbps = f.GetInt("floors", "mavlink_min_floor_kbps", cfg.MavMinFloorKbps)
	cfg.MavCeilMaxKbps = f.GetInt("floors", "mavlink_ceil_max_kbps", cfg.MavCeilMaxKbps)
	cfg.TunFloorKbps = f.GetInt("floors", "tunnel_floor_kbps", cfg.TunFloorKbps)
	cfg.TunCeilMaxKbps = f.GetInt("floors", "tunnel_ceil_max_kbps", cfg.TunCeilMaxKbps)
	cfg.DefFloorKbps = f.GetInt("floors", "default_floor_kbps", cfg.DefFloorKbps)
	cfg.DefCeilMaxKbps = f.GetInt("floors", "default_ceil_max_kbps", cfg.DefCeilMaxKbps)

	return cfg, nil
}
