// Package rtpsplit implements the R component: a loopback UDP listener
// that replicates each datagram, per the currently selected mode, to one
// or two destinations. Grounded on original_source/src/rtp_split.c's
// main loop and signal handlers; the four runtime modes are kept but
// remapped onto a non-overloaded signal set (see DESIGN.md Open
// Question 2 — the original reuses SIGTERM for "both" mode alongside
// shutdown).
package rtpsplit

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pion/rtp"
	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/telemetry"
)

// Config is rtpsplit's runtime configuration.
type Config struct {
	ListenAddr    string
	UnicastAddr   string
	BroadcastAddr string
	AltPort       int
	BatchSize     int
	StatsEvery    time.Duration
	StartMode     domain.SplitMode
}

// Splitter owns the loopback listener and output sockets.
type Splitter struct {
	cfg  Config
	conn *net.UDPConn

	unicastAddr   *net.UDPAddr
	broadcastAddr *net.UDPAddr
	altPortAddr   *net.UDPAddr
	samePortAddr  *net.UDPAddr

	mode atomic.Int32

	packets atomic.Uint64
	bytes   atomic.Uint64
	seqGaps atomic.Uint64

	haveLastSeq bool
	lastSeq     uint16
}

func New(cfg Config) (*Splitter, error) {
	laddr, err := net.ResolveUDPAddr("udp4", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("rtpsplit: resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("rtpsplit: listen %s: %w", cfg.ListenAddr, err)
	}

	uaddr, err := net.ResolveUDPAddr("udp4", cfg.UnicastAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rtpsplit: resolve unicast addr: %w", err)
	}
	baddr, err := net.ResolveUDPAddr("udp4", cfg.BroadcastAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rtpsplit: resolve broadcast addr: %w", err)
	}

	s := &Splitter{
		cfg: cfg, conn: conn,
		unicastAddr:   uaddr,
		broadcastAddr: baddr,
		altPortAddr:   &net.UDPAddr{IP: baddr.IP, Port: cfg.AltPort},
		samePortAddr:  &net.UDPAddr{IP: baddr.IP, Port: uaddr.Port},
	}
	s.mode.Store(int32(cfg.StartMode))
	return s, nil
}

func (s *Splitter) Close() error { return s.conn.Close() }

func (s *Splitter) Mode() domain.SplitMode { return domain.SplitMode(s.mode.Load()) }

// ListenSignals installs the resolved, non-overloaded signal-to-mode
// mapping and returns once ctx is canceled. SIGINT/SIGTERM are left to
// the caller's own shutdown handling.
func (s *Splitter) ListenSignals(ctx context.Context) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			var m domain.SplitMode
			switch sig {
			case syscall.SIGUSR1:
				m = domain.ModeUnicast
			case syscall.SIGUSR2:
				m = domain.ModeBroadcastAltPort
			case syscall.SIGHUP:
				m = domain.ModeBoth
			case syscall.SIGQUIT:
				m = domain.ModeBroadcastSamePort
			default:
				continue
			}
			s.mode.Store(int32(m))
			log.Printf("[rtpsplit] mode -> %s", m)
		}
	}
}

// Run reads datagrams off the loopback listener until ctx is canceled,
// replicating each to the destinations implied by the current mode.
func (s *Splitter) Run(ctx context.Context) error {
	statsEvery := s.cfg.StatsEvery
	if statsEvery <= 0 {
		statsEvery = time.Second
	}
	lastStats := time.Now()
	buf := make([]byte, 2048)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := s.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// fall through to the stats check below
			} else {
				return fmt.Errorf("rtpsplit: read: %w", err)
			}
		} else {
			s.dispatch(buf[:n])
		}

		if time.Since(lastStats) >= statsEvery {
			s.logStats(statsEvery)
			lastStats = time.Now()
		}
	}
}

func (s *Splitter) dispatch(datagram []byte) {
	var hdr rtp.Header
	if _, err := hdr.Unmarshal(datagram); err == nil {
		// Sequence numbers are tracked for the gap counter only; the
		// forwarded bytes below are the untouched original datagram.
		if s.haveLastSeq && hdr.SequenceNumber != s.lastSeq+1 {
			s.seqGaps.Add(1)
			telemetry.SeqGapsTotal.Inc()
		}
		s.lastSeq = hdr.SequenceNumber
		s.haveLastSeq = true
	}

	mode := s.Mode()
	dests := s.destinationsFor(mode)
	batch := s.cfg.BatchSize
	if batch < 1 {
		batch = 1
	}
	for _, dst := range dests {
		for i := 0; i < batch; i++ {
			if _, err := s.conn.WriteToUDP(datagram, dst); err != nil {
				log.Printf("[rtpsplit] write to %s: %v", dst, err)
				continue
			}
			s.packets.Add(1)
			s.bytes.Add(uint64(len(datagram)))
			telemetry.PacketsSplit.WithLabelValues(mode.String()).Inc()
		}
	}
}

func (s *Splitter) destinationsFor(mode domain.SplitMode) []*net.UDPAddr {
	switch mode {
	case domain.ModeUnicast:
		return []*net.UDPAddr{s.unicastAddr}
	case domain.ModeBroadcastAltPort:
		return []*net.UDPAddr{s.altPortAddr}
	case domain.ModeBoth:
		return []*net.UDPAddr{s.unicastAddr, s.altPortAddr}
	case domain.ModeBroadcastSamePort:
		return []*net.UDPAddr{s.samePortAddr}
	default:
		return nil
	}
}

func (s *Splitter) logStats(window time.Duration) {
	pkts := s.packets.Swap(0)
	bytes := s.bytes.Swap(0)
	gaps := s.seqGaps.Swap(0)
	mbps := float64(bytes*8) / window.Seconds() / 1e6
	fmt.Printf("%d packets (%.2f Mbps) last sec, mode=%s, seq_gaps=%d\n", pkts, mbps, s.Mode(), gaps)
}
