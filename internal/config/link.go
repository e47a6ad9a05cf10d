package config

import (
	"flag"
	"strings"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/core/services/link"
	"github.com/snokvist/fpvcore/internal/iniconf"
)

// LinkProcess holds linkmgrd's process-level knobs (bind address, config
// path, debug) the way internal/config.Load does for the teacher's agent —
// flags take precedence over environment variables.
type LinkProcess struct {
	CfgPath  string
	HTTPAddr string
	DBPath   string
	Debug    bool
}

// LoadLinkProcess parses flags/env for the linkmgrd binary.
func LoadLinkProcess() *LinkProcess {
	p := &LinkProcess{}
	p.CfgPath = getEnv("LINKMGRD_CONF", "/etc/linkmgrd.conf")
	p.HTTPAddr = getEnv("LINKMGRD_ADDR", ":8080")
	p.DBPath = getEnv("LINKMGRD_DB", "/tmp/linkmgrd.db")

	flag.StringVar(&p.CfgPath, "conf", p.CfgPath, "path to linkmgrd.conf")
	flag.StringVar(&p.HTTPAddr, "addr", p.HTTPAddr, "HTTP status server address")
	flag.StringVar(&p.DBPath, "db", p.DBPath, "path to the SQLite audit log")
	flag.BoolVar(&p.Debug, "debug", false, "enable verbose logging")
	flag.Parse()
	return p
}

// LoadLinkConfig reads [general]/[master]/[staN] sections into a
// link.Config, applying the same defaults the original linkmgrd.conf
// loader does.
func LoadLinkConfig(path string) (link.Config, error) {
	f, err := iniconf.Load(path)
	if err != nil {
		return link.Config{}, err
	}

	cfg := link.Config{
		PollMs:      int64(f.GetInt("general", "poll_interval_ms", 500)),
		HystMs:      int64(f.GetInt("general", "hysteresis_ms", 2000)),
		HystDb:      f.GetInt("general", "hysteresis_db", 10),
		FloorDb:     f.GetInt("general", "floor_db", -40),
		PingToMs:    int64(f.GetInt("general", "ping_timeout_ms", 300)),
		PingFailMax: uint8(f.GetInt("general", "ping_fail_max", 3)),
		MasterIface: f.GetString("master", "master_iface", "wlan0"),
	}

	for _, sec := range f.Sections("sta") {
		if sec == "sta" {
			continue // [sta] holds the STA-role's master_ip, not a station block
		}
		iface := f.GetString(sec, "iface", "")
		ip := f.GetString(sec, "ip", "")
		mac := f.GetString(sec, "mac", "")
		if ip == "" || mac == "" {
			continue
		}
		cfg.Stations = append(cfg.Stations, domain.Station{Iface: iface, IP: ip, MAC: strings.ToUpper(mac)})
	}
	return cfg, nil
}
