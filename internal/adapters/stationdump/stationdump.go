// Package stationdump implements ports.StationSource by shelling out to
// `iw dev <iface> station dump`, the same tool linkmgrd.c's mst_poll()
// parses (see original_source/src/linkmgrd.c).
package stationdump

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Executor abstracts process execution so tests can feed canned station
// dump output without a real radio, mirroring the teacher's
// CommandExecutor/SystemCommandExecutor split in
// internal/adapters/sniffer/driver/wireless_utils.go.
type Executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type systemExecutor struct{}

func (systemExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// Source polls one master interface's associated stations.
type Source struct {
	Iface string
	exec  Executor
}

func New(iface string) *Source {
	return &Source{Iface: iface, exec: systemExecutor{}}
}

// NewWithExecutor is for tests.
func NewWithExecutor(iface string, e Executor) *Source {
	return &Source{Iface: iface, exec: e}
}

// Dump runs `iw dev <iface> station dump` under the given budget and
// returns RSSI in dBm keyed by uppercased MAC. A station with no "signal:"
// line yet (freshly associated) is reported at 0, not omitted, matching
// the original's per-block reset.
func (s *Source) Dump(ctx context.Context, budget time.Duration) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	out, err := s.exec.Output(ctx, "iw", "dev", s.Iface, "station", "dump")
	if err != nil {
		return nil, fmt.Errorf("stationdump: iw dev %s station dump: %w", s.Iface, err)
	}
	return parseStationDump(string(out)), nil
}

func parseStationDump(out string) map[string]int {
	result := map[string]int{}
	sc := bufio.NewScanner(strings.NewReader(out))

	mac := ""
	rssi := 0
	commit := func() {
		if mac != "" {
			result[strings.ToUpper(mac)] = rssi
		}
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Station ") {
			commit()
			fields := strings.Fields(line)
			mac = ""
			if len(fields) >= 2 {
				mac = fields[1]
			}
			rssi = 0
			continue
		}
		if strings.HasPrefix(line, "signal:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if n, err := strconv.Atoi(strings.TrimSuffix(fields[1], "dBm")); err == nil {
					rssi = n
				}
			}
		}
	}
	commit()
	return result
}
