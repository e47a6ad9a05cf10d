package link

import (
	"context"
	"testing"
	"time"

	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ ms int64 }

func (f *fakeClock) NowMs() int64 { return f.ms }

// dynamicSource lets tests mutate the reported RSSI map between polls.
type dynamicSource struct{ rssi map[string]int }

func (d *dynamicSource) Dump(ctx context.Context, _ time.Duration) (map[string]int, error) {
	return d.rssi, nil
}

type fakeRoute struct {
	calls []string
}

func (f *fakeRoute) SetDefault(ctx context.Context, gwIP, iface string) error {
	f.calls = append(f.calls, "set:"+gwIP+":"+iface)
	return nil
}
func (f *fakeRoute) ClearDefault(ctx context.Context, iface string) error {
	f.calls = append(f.calls, "clear:"+iface)
	return nil
}
func (f *fakeRoute) DefaultMatches(ctx context.Context, gwIP, iface string) (bool, error) {
	return len(f.calls) > 0 && f.calls[len(f.calls)-1] == "set:"+gwIP+":"+iface, nil
}

func newFixture(stations []domain.Station) (*Controller, *fakeClock, *fakeRoute, *dynamicSource) {
	clock := &fakeClock{}
	rc := &fakeRoute{}
	src := &dynamicSource{}
	cfg := Config{
		PollMs:      100,
		HystMs:      2000,
		HystDb:      10,
		FloorDb:     -40,
		PingToMs:    200,
		PingFailMax: 3,
		MasterIface: "wlan0",
		Stations:    stations,
	}
	c := New(cfg, src, nil, rc, nil, clock)
	return c, clock, rc, src
}

func TestScenarioS1Selection(t *testing.T) {
	stations := []domain.Station{
		{IP: "192.168.0.11", MAC: "AA:AA:AA:AA:AA:01"},
		{IP: "192.168.0.12", MAC: "AA:AA:AA:AA:AA:02"},
	}
	c, clock, _, src := newFixture(stations)
	src.rssi = map[string]int{
		"aa:aa:aa:aa:aa:01": -50,
		"aa:aa:aa:aa:aa:02": -45,
	}

	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "192.168.0.12", c.route.CandidateIP)
	require.Empty(t, c.Via())

	clock.ms = 2000
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "192.168.0.12", c.Via())

	// Flip at t=5000: A=-40, B=-60. B is now below floor_db=-40 so
	// stickiness breaks and A becomes the new candidate.
	clock.ms = 5000
	src.rssi = map[string]int{
		"aa:aa:aa:aa:aa:01": -40,
		"aa:aa:aa:aa:aa:02": -60,
	}
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "192.168.0.11", c.route.CandidateIP)

	clock.ms = 7000
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "192.168.0.11", c.Via())
}

func TestPingMasksRSSI(t *testing.T) {
	stations := []domain.Station{
		{IP: "192.168.0.11", MAC: "AA:AA:AA:AA:AA:01"},
		{IP: "192.168.0.12", MAC: "AA:AA:AA:AA:AA:02"},
	}
	c, clock, _, src := newFixture(stations)
	// A is clearly best (20 dB clear of B, > hyst_db) so it is the sole
	// candidate and commits cleanly as "via=A" by t=2000, matching the
	// scenario's given starting condition.
	src.rssi = map[string]int{
		"aa:aa:aa:aa:aa:01": -30,
		"aa:aa:aa:aa:aa:02": -50,
	}
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	clock.ms = 2000
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "192.168.0.11", c.Via())

	src.rssi = map[string]int{
		"aa:aa:aa:aa:aa:01": -30,
		"aa:aa:aa:aa:aa:02": -32,
	}

	for i := 0; i < 3; i++ {
		c.stations[0].RecordPingTimeout()
	}
	require.Equal(t, domain.UnseenRSSI, c.stations[0].EffectiveRSSI(c.cfg.PingFailMax))

	clock.ms = 4000
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	clock.ms = 6000
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "192.168.0.12", c.Via())
}

func TestWatchdogIdempotent(t *testing.T) {
	stations := []domain.Station{{IP: "10.0.0.2", MAC: "AA:BB:CC:DD:EE:01"}}
	c, clock, rc, src := newFixture(stations)
	src.rssi = map[string]int{"aa:bb:cc:dd:ee:01": -20}
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	clock.ms = 2000
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "10.0.0.2", c.Via())

	before := len(rc.calls)
	c.Watchdog(context.Background())
	c.Watchdog(context.Background())
	require.Equal(t, before, len(rc.calls), "watchdog must not re-issue an unchanged route")
}

func TestAllStationsDown(t *testing.T) {
	stations := []domain.Station{{IP: "10.0.0.2", MAC: "AA:BB:CC:DD:EE:01"}}
	c, clock, rc, src := newFixture(stations)
	src.rssi = map[string]int{"aa:bb:cc:dd:ee:01": -20}
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	clock.ms = 2000
	c.Poll(context.Background())
	require.NoError(t, c.Decide(context.Background()))
	require.Equal(t, "10.0.0.2", c.Via())

	src.rssi = map[string]int{} // station vanishes entirely -> UnseenRSSI
	clock.ms = 2100
	c.Poll(context.Background())
	err := c.Decide(context.Background())
	require.ErrorIs(t, err, ErrNoViableStation)
	require.Empty(t, c.Via())
	require.Equal(t, domain.StateDown, c.State())
	require.Contains(t, rc.calls, "clear:wlan0")
}
