// Package telemetryfile implements ports.TelemetryReader by reading a
// plain `key=value` file, grounded on trafficctrl.c's
// read_telem_file() (original_source/src/trafficctrl.c).
package telemetryfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reader reads mcs/width out of a telemetry file on each Read call. The
// sample timestamp is the file's mtime, matching trafficctrl's staleness
// check against the file's last write rather than a value embedded in it.
type Reader struct {
	Path     string
	KeyMCS   string
	KeyWidth string
}

func New(path, keyMCS, keyWidth string) *Reader {
	return &Reader{Path: path, KeyMCS: keyMCS, KeyWidth: keyWidth}
}

func (r *Reader) Read(ctx context.Context) (mcs, widthMHz int, sampledAt time.Time, err error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("telemetryfile: open %s: %w", r.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("telemetryfile: stat %s: %w", r.Path, err)
	}

	gotMCS, gotWidth := -1, -1
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		switch key {
		case r.KeyMCS:
			if n, err := strconv.Atoi(val); err == nil {
				gotMCS = n
			}
		case r.KeyWidth:
			if n, err := strconv.Atoi(val); err == nil {
				gotWidth = n
			}
		}
	}
	if err := sc.Err(); err != nil {
		return 0, 0, time.Time{}, err
	}
	if gotMCS < 0 || gotWidth <= 0 {
		return 0, 0, time.Time{}, fmt.Errorf("telemetryfile: %s missing %s/%s", r.Path, r.KeyMCS, r.KeyWidth)
	}
	return gotMCS, gotWidth, info.ModTime(), nil
}
