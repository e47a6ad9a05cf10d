package sniffer

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/telemetry"
)

// Config is wfbsniff's runtime configuration.
type Config struct {
	Iface      string
	Filter     domain.SnifferFilter
	ForwardIP  string
	ForwardPrt int
	BatchSize  int
	StatsEvery time.Duration
}

// Stats holds the per-second counters printed in ap-wfb.c's
// "ts:recv=N:fwd=N:badfcs=N" line.
type Stats struct {
	Recv    uint64
	Fwd     uint64
	BadFCS  uint64
	Dropped uint64
}

// Runner owns one monitor-mode capture handle and forwards accepted
// frames to the configured UDP destination.
type Runner struct {
	cfg    Config
	handle *pcap.Handle
	sender *batchSender

	recv, fwd, badfcs, dropped atomic.Uint64
}

func NewRunner(cfg Config) (*Runner, error) {
	handle, err := pcap.OpenLive(cfg.Iface, 2048, true, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("sniffer: open %s: %w", cfg.Iface, err)
	}
	sender, err := newBatchSender(cfg.ForwardIP, cfg.ForwardPrt, cfg.BatchSize)
	if err != nil {
		handle.Close()
		return nil, err
	}
	return &Runner{cfg: cfg, handle: handle, sender: sender}, nil
}

func (r *Runner) Close() {
	r.handle.Close()
	r.sender.Close()
}

// Run reads frames until ctx is canceled, validating and forwarding each
// one, and prints a stats line at the configured interval.
func (r *Runner) Run(ctx context.Context) error {
	statsEvery := r.cfg.StatsEvery
	if statsEvery <= 0 {
		statsEvery = time.Second
	}
	lastStats := time.Now()

	for {
		select {
		case <-ctx.Done():
			r.flushAndLog()
			return ctx.Err()
		default:
		}

		data, _, err := r.handle.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			// fallthrough to the stats check below
		} else if err != nil {
			return fmt.Errorf("sniffer: read packet: %w", err)
		} else {
			r.handleFrame(data)
		}

		if time.Since(lastStats) >= statsEvery {
			r.flushAndLog()
			lastStats = time.Now()
		}
	}
}

// handleFrame validates one captured frame against the configured filter.
// recv (and the FramesReceived counter it feeds) counts only frames that
// pass every check, matching ap-wfb.c's stat_recv, which increments right
// before a datagram is queued for forwarding rather than at capture time.
func (r *Runner) handleFrame(data []byte) {
	datagram, reason := ExtractUDP(data, r.cfg.Filter)
	if reason == DropBadFCS {
		r.badfcs.Add(1)
		return
	}
	if reason != DropNone {
		r.dropped.Add(1)
		return
	}
	r.recv.Add(1)
	if err := r.sender.Add(datagram); err != nil {
		log.Printf("[sniffer] forward: %v", err)
		return
	}
}

func (r *Runner) flushAndLog() {
	if _, err := r.sender.Flush(); err != nil {
		log.Printf("[sniffer] flush: %v", err)
	}
	r.fwd.Add(uint64(r.sender.fwdCount))
	r.sender.fwdCount = 0
	recv, fwd, badfcs := r.recv.Swap(0), r.fwd.Swap(0), r.badfcs.Swap(0)

	telemetry.FramesReceived.WithLabelValues(r.cfg.Iface).Add(float64(recv))
	telemetry.FramesForwarded.WithLabelValues(r.cfg.Iface).Add(float64(fwd))
	telemetry.FramesBadFCS.WithLabelValues(r.cfg.Iface).Add(float64(badfcs))

	fmt.Printf("%.3f:recv=%d:fwd=%d:badfcs=%d\n",
		float64(time.Now().UnixNano())/1e9, recv, fwd, badfcs)
}
