// Package sniffer implements the S component: monitor-mode capture via
// gopacket/pcap plus the frame-validation pipeline from
// original_source/src/ap-wfb.c's handle_pkt(), re-expressed step by step
// per spec.md §4.3 so the pure byte-parsing logic is unit-testable
// without an actual capture device.
package sniffer

import (
	"encoding/binary"
	"errors"

	"github.com/snokvist/fpvcore/internal/core/domain"
)

const (
	radiotapMinLen = 8
	maxPkt         = 1600
	// radiotap "flags" presence bit (bit 1 of the first present word).
	presentFlagsBit = 1 << 1
	presentExtBit   = 1 << 31
	rtapFlagBadFCS  = 0x40
)

// DropReason identifies why ExtractUDP rejected a frame, for counters.
type DropReason int

const (
	DropNone DropReason = iota
	DropTooShort
	DropBadFCS
	DropNotToDS
	DropBSSIDMismatch
	DropDestMismatch
	DropUnknownVersion
	DropPortMismatch
	DropTooLarge
)

var errShortFrame = errors.New("sniffer: frame shorter than declared radiotap length")

// ExtractUDP runs the full validation pipeline from spec.md §4.3 against
// one captured frame (radiotap header + 802.11 + payload) and returns the
// inner UDP datagram (header + payload, unmodified) on success.
func ExtractUDP(frame []byte, filter domain.SnifferFilter) ([]byte, DropReason) {
	if len(frame) < radiotapMinLen {
		return nil, DropTooShort
	}
	rtLen := int(binary.LittleEndian.Uint16(frame[2:4]))
	if rtLen > len(frame) || rtLen < radiotapMinLen {
		return nil, DropTooShort
	}

	if badFCS(frame, rtLen) {
		return nil, DropBadFCS
	}

	off := rtLen
	if off+24 > len(frame) {
		return nil, DropTooShort
	}
	fc := binary.LittleEndian.Uint16(frame[off : off+2])
	toDS := (fc >> 8) & 1
	fromDS := (fc >> 9) & 1
	if toDS != 1 || fromDS != 0 {
		return nil, DropNotToDS
	}

	addr2 := frame[off+10 : off+16]
	if !macEqual(addr2, filter.BSSID) {
		return nil, DropBSSIDMismatch
	}
	addr1 := frame[off+4 : off+10]
	if filter.HasDest && !macEqual(addr1, filter.DestMAC) {
		return nil, DropDestMismatch
	}
	if filter.HasGroup && !macEqual(addr1, filter.GroupMAC) {
		return nil, DropDestMismatch
	}

	isQoSData := (fc>>7)&1 == 1 && fc&0x0c == 0x08
	off += 24
	if isQoSData {
		off += 2
	}
	off += 8 // LLC/SNAP
	if off+1 > len(frame) {
		return nil, DropTooShort
	}

	ver := frame[off] >> 4
	var udpOff, udpLen int
	switch ver {
	case 4:
		ihl := int(frame[off]&0x0f) * 4
		if ihl < 20 || off+ihl+8 > len(frame) {
			return nil, DropTooShort
		}
		udp := frame[off+ihl:]
		udpLen = int(binary.BigEndian.Uint16(udp[4:6]))
		udpOff = off + ihl
		if filter.UDPPort != 0 {
			dstPort := int(binary.BigEndian.Uint16(udp[2:4]))
			if dstPort != filter.UDPPort {
				return nil, DropPortMismatch
			}
		}
	case 6:
		if off+40+8 > len(frame) {
			return nil, DropTooShort
		}
		udp := frame[off+40:]
		udpLen = int(binary.BigEndian.Uint16(udp[4:6]))
		udpOff = off + 40
		if filter.UDPPort != 0 {
			dstPort := int(binary.BigEndian.Uint16(udp[2:4]))
			if dstPort != filter.UDPPort {
				return nil, DropPortMismatch
			}
		}
	default:
		return nil, DropUnknownVersion
	}

	if udpLen+8 > maxPkt {
		return nil, DropTooLarge
	}
	if udpOff+udpLen > len(frame) {
		return nil, DropTooShort
	}
	return frame[udpOff : udpOff+udpLen], DropNone
}

// badFCS walks the radiotap present-bitmask extension chain to find the
// "flags" field's offset and checks the bad-FCS bit there. Only the
// flags field's offset is resolved this way (see DESIGN.md Open Question
// 3) — later radiotap fields are not needed by this spec.
func badFCS(frame []byte, rtLen int) bool {
	if rtLen < radiotapMinLen {
		return false
	}
	present := binary.LittleEndian.Uint32(frame[4:8])
	if present&presentFlagsBit == 0 {
		return false
	}
	offset := radiotapMinLen
	for present&presentExtBit != 0 {
		if offset+4 > rtLen || offset+4 > len(frame) {
			return false
		}
		present = binary.LittleEndian.Uint32(frame[offset : offset+4])
		offset += 4
	}
	if offset >= len(frame) || offset >= rtLen {
		return false
	}
	return frame[offset]&rtapFlagBadFCS != 0
}

func macEqual(b []byte, mac [6]byte) bool {
	for i := 0; i < 6; i++ {
		if b[i] != mac[i] {
			return false
		}
	}
	return true
}
