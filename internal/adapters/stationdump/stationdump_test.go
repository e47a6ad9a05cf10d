package stationdump

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	out []byte
	err error
}

func (f *fakeExec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.out, f.err
}

const sampleDump = `Station aa:bb:cc:dd:ee:01 (on wlan0)
	inactive time:	120 ms
	rx bytes:	1000
	signal:  	-45 [-45, -45] dBm
	tx bitrate:	6.0 MBit/s
Station aa:bb:cc:dd:ee:02 (on wlan0)
	inactive time:	30 ms
	signal:  	-67 [-67] dBm
`

func TestParseStationDump(t *testing.T) {
	src := NewWithExecutor("wlan0", &fakeExec{out: []byte(sampleDump)})
	got, err := src.Dump(context.Background(), 300*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, -45, got["AA:BB:CC:DD:EE:01"])
	require.Equal(t, -67, got["AA:BB:CC:DD:EE:02"])
}

func TestParseStationDumpMissingSignalDefaultsZero(t *testing.T) {
	dump := "Station aa:bb:cc:dd:ee:03 (on wlan0)\n\tinactive time:\t5 ms\n"
	src := NewWithExecutor("wlan0", &fakeExec{out: []byte(dump)})
	got, err := src.Dump(context.Background(), 300*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 0, got["AA:BB:CC:DD:EE:03"])
}
