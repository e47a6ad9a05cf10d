package config

import "flag"

// RTPSplitProcess holds rtpsplit's command-line configuration: the
// loopback listener, the unicast/broadcast destinations per mode, and the
// realtime-scheduling opt-in. Mirrors rtp_split.c's argv surface.
type RTPSplitProcess struct {
	ListenAddr       string
	UnicastAddr      string
	BroadcastAddr    string
	AltPort          int
	BatchSize        int
	StatsEvery       int
	Realtime         bool
	CPUAffinityCore  int
	Debug            bool
}

func LoadRTPSplitProcess() *RTPSplitProcess {
	p := &RTPSplitProcess{}
	flag.StringVar(&p.ListenAddr, "listen", getEnv("RTPSPLIT_LISTEN", "127.0.0.1:5601"), "loopback UDP listen address")
	flag.StringVar(&p.UnicastAddr, "unicast", getEnv("RTPSPLIT_UNICAST", "127.0.0.1:5602"), "unicast destination")
	flag.StringVar(&p.BroadcastAddr, "broadcast", getEnv("RTPSPLIT_BROADCAST", "255.255.255.255:5602"), "broadcast destination")
	flag.IntVar(&p.AltPort, "alt-port", getEnvInt("RTPSPLIT_ALT_PORT", 5603), "alternate broadcast port for BROADCAST_ALT_PORT mode")
	flag.IntVar(&p.BatchSize, "batch", getEnvInt("RTPSPLIT_BATCH", 16), "copies of each packet sent per destination (1-64)")
	flag.IntVar(&p.StatsEvery, "stats-interval-ms", getEnvInt("RTPSPLIT_STATS_MS", 1000), "stats line interval")
	flag.BoolVar(&p.Realtime, "realtime", getEnvBool("RTPSPLIT_REALTIME", true), "request SCHED_FIFO + mlockall")
	flag.IntVar(&p.CPUAffinityCore, "cpu", getEnvInt("RTPSPLIT_CPU", 0), "pin to a CPU core (-1 disables)")
	flag.BoolVar(&p.Debug, "debug", false, "enable verbose logging")
	flag.Parse()
	if p.BatchSize < 1 {
		p.BatchSize = 1
	}
	if p.BatchSize > 64 {
		p.BatchSize = 64
	}
	return p
}
