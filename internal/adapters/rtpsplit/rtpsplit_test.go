package rtpsplit

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func rtpPacket(seq uint16) []byte {
	b := make([]byte, 12)
	b[0] = 0x80 // version 2, no padding/extension/CSRC
	b[1] = 96   // payload type
	binary.BigEndian.PutUint16(b[2:4], seq)
	return b
}

func newTestSplitter(t *testing.T) *Splitter {
	t.Helper()
	s, err := New(Config{
		ListenAddr:    "127.0.0.1:0",
		UnicastAddr:   "127.0.0.1:6000",
		BroadcastAddr: "255.255.255.255:6001",
		AltPort:       6002,
		BatchSize:     1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDestinationsForUnicast(t *testing.T) {
	s := newTestSplitter(t)
	dests := s.destinationsFor(domain.ModeUnicast)
	require.Equal(t, []*net.UDPAddr{s.unicastAddr}, dests)
}

func TestDestinationsForBoth(t *testing.T) {
	s := newTestSplitter(t)
	dests := s.destinationsFor(domain.ModeBoth)
	require.Equal(t, []*net.UDPAddr{s.unicastAddr, s.altPortAddr}, dests)
}

func TestDestinationsForBroadcastSamePortUsesUnicastPort(t *testing.T) {
	s := newTestSplitter(t)
	dests := s.destinationsFor(domain.ModeBroadcastSamePort)
	require.Len(t, dests, 1)
	require.Equal(t, s.unicastAddr.Port, dests[0].Port)
	require.Equal(t, s.broadcastAddr.IP.String(), dests[0].IP.String())
}

func TestModeDefaultsToStartMode(t *testing.T) {
	s, err := New(Config{
		ListenAddr: "127.0.0.1:0", UnicastAddr: "127.0.0.1:6010",
		BroadcastAddr: "255.255.255.255:6011", AltPort: 6012,
		StartMode: domain.ModeBroadcastAltPort,
	})
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, domain.ModeBroadcastAltPort, s.Mode())
}

func TestDispatchCountsSequenceGaps(t *testing.T) {
	s := newTestSplitter(t)
	s.dispatch(rtpPacket(1))
	s.dispatch(rtpPacket(2))
	require.Equal(t, uint64(0), s.seqGaps.Load())

	s.dispatch(rtpPacket(10))
	require.Equal(t, uint64(1), s.seqGaps.Load())

	s.dispatch(rtpPacket(11))
	require.Equal(t, uint64(1), s.seqGaps.Load())
}
