package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	ran     [][]string
	showOut []byte
}

func (f *fakeExec) Run(ctx context.Context, name string, args ...string) error {
	f.ran = append(f.ran, append([]string{name}, args...))
	return nil
}

func (f *fakeExec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.showOut, nil
}

func TestSetDefaultReplacesAndFlushes(t *testing.T) {
	fe := &fakeExec{}
	c := NewWithExecutor(fe)
	require.NoError(t, c.SetDefault(context.Background(), "10.0.0.2", "wlan0"))
	require.Len(t, fe.ran, 2)
	require.Equal(t, []string{"ip", "route", "replace", "default", "via", "10.0.0.2", "dev", "wlan0"}, fe.ran[0])
}

func TestDefaultMatchesParsesShowOutput(t *testing.T) {
	fe := &fakeExec{showOut: []byte("default via 10.0.0.2 dev wlan0 metric 10\n")}
	c := NewWithExecutor(fe)
	ok, err := c.DefaultMatches(context.Background(), "10.0.0.2", "wlan0")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.DefaultMatches(context.Background(), "10.0.0.3", "wlan0")
	require.NoError(t, err)
	require.False(t, ok)
}
