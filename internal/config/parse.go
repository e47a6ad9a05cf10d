package config

import (
	"fmt"
	"strconv"
	"strings"
)

func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("config: %q is not a colon-hex MAC address", s)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("config: invalid MAC octet %q: %w", p, err)
		}
		mac[i] = byte(n)
	}
	return mac, nil
}

func parseIPv4(s string) (a, b, c, d byte, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("config: %q is not a dotted-quad IPv4 address", s)
	}
	vals := make([]byte, 4)
	for i, p := range parts {
		n, perr := strconv.ParseUint(p, 10, 8)
		if perr != nil {
			return 0, 0, 0, 0, fmt.Errorf("config: invalid IPv4 octet %q: %w", p, perr)
		}
		vals[i] = byte(n)
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}
