package sniffer

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// batchSender accumulates accepted UDP datagrams and flushes them in one
// vectored sendmmsg(2) call, mirroring ap-wfb.c's tx_buf/tx_flush ring.
type batchSender struct {
	fd       int
	batchSz  int
	bufs     [][]byte
	fwdCount int
}

func newBatchSender(dstIP string, dstPort int, batchSz int) (*batchSender, error) {
	if batchSz < 1 {
		batchSz = 1
	}
	if batchSz > 64 {
		batchSz = 64
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("sniffer: socket: %w", err)
	}
	ip := net.ParseIP(dstIP).To4()
	if ip == nil {
		unix.Close(fd)
		return nil, fmt.Errorf("sniffer: %q is not a valid IPv4 address", dstIP)
	}
	addr := &unix.SockaddrInet4{Port: dstPort}
	copy(addr.Addr[:], ip)
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("sniffer: connect %s:%d: %w", dstIP, dstPort, err)
	}
	return &batchSender{fd: fd, batchSz: batchSz}, nil
}

// Add appends one datagram to the pending batch, flushing first if full.
func (b *batchSender) Add(datagram []byte) error {
	if len(b.bufs) >= b.batchSz {
		if _, err := b.Flush(); err != nil {
			return err
		}
	}
	cp := append([]byte(nil), datagram...)
	b.bufs = append(b.bufs, cp)
	return nil
}

// Flush sends every pending datagram in one sendmmsg(2) batch and resets
// the ring. Only datagrams actually sent are added to fwdCount, so partial
// sends (sent < len(bufs)) are counted as such; the runner drains fwdCount
// into its fwd counter at each stats line, matching ap-wfb.c's best-effort
// stat_fwd accounting.
func (b *batchSender) Flush() (int, error) {
	if len(b.bufs) == 0 {
		return 0, nil
	}
	msgs := make([]unix.Mmsghdr, len(b.bufs))
	iovs := make([]unix.Iovec, len(b.bufs))
	for i, buf := range b.bufs {
		iovs[i].Base = &buf[0]
		iovs[i].SetLen(len(buf))
		msgs[i].Hdr.Iov = &iovs[i]
		msgs[i].Hdr.Iovlen = 1
	}
	n, err := unix.Sendmmsg(b.fd, msgs, 0)
	b.bufs = b.bufs[:0]
	if err != nil {
		return n, fmt.Errorf("sniffer: sendmmsg: %w", err)
	}
	b.fwdCount += n
	return n, nil
}

func (b *batchSender) Close() error {
	return unix.Close(b.fd)
}
