package config

import (
	"flag"

	"github.com/snokvist/fpvcore/internal/core/domain"
)

// SnifferProcess holds wfbsniff's command-line configuration: the
// monitor-mode interface to capture on, the BSSID/dest/group filters, and
// the UDP forward target. wfbsniff has no .conf file in spec.md — its
// knobs are flags only, like ap-wfb.c's argv parsing.
type SnifferProcess struct {
	Iface      string
	BSSIDHex   string
	DestHex    string
	GroupIPv4  string
	UDPPort    int
	ForwardTo  string
	StatsEvery int
	Debug      bool
}

func LoadSnifferProcess() *SnifferProcess {
	p := &SnifferProcess{}
	flag.StringVar(&p.Iface, "iface", getEnv("WFBSNIFF_IFACE", "wlan0mon"), "monitor-mode interface")
	flag.StringVar(&p.BSSIDHex, "bssid", getEnv("WFBSNIFF_BSSID", ""), "BSSID filter, colon-hex")
	flag.StringVar(&p.DestHex, "dest-mac", getEnv("WFBSNIFF_DEST_MAC", ""), "destination MAC filter, colon-hex")
	flag.StringVar(&p.GroupIPv4, "group-ip", getEnv("WFBSNIFF_GROUP_IP", ""), "multicast group IPv4 to derive the dest MAC filter from")
	flag.IntVar(&p.UDPPort, "udp-port", getEnvInt("WFBSNIFF_UDP_PORT", 5600), "destination UDP port to forward")
	flag.StringVar(&p.ForwardTo, "forward-to", getEnv("WFBSNIFF_FORWARD_TO", "127.0.0.1:5601"), "UDP forward destination")
	flag.IntVar(&p.StatsEvery, "stats-interval-ms", getEnvInt("WFBSNIFF_STATS_MS", 1000), "stats line interval")
	flag.BoolVar(&p.Debug, "debug", false, "enable verbose logging")
	flag.Parse()
	return p
}

// Filter builds the domain.SnifferFilter this process config describes.
func (p *SnifferProcess) Filter() (domain.SnifferFilter, error) {
	var f domain.SnifferFilter
	f.UDPPort = p.UDPPort
	if p.BSSIDHex != "" {
		mac, err := parseMAC(p.BSSIDHex)
		if err != nil {
			return f, err
		}
		f.BSSID = mac
	}
	if p.DestHex != "" {
		mac, err := parseMAC(p.DestHex)
		if err != nil {
			return f, err
		}
		f.DestMAC = mac
		f.HasDest = true
	}
	if p.GroupIPv4 != "" {
		a, b, c, d, err := parseIPv4(p.GroupIPv4)
		if err != nil {
			return f, err
		}
		f.GroupMAC = domain.GroupMACFromIPv4(a, b, c, d)
		f.HasGroup = true
	}
	return f, nil
}
