// Package routing implements ports.RouteController over the `ip` command,
// the same tool linkmgrd.c's sta_route() shells out to (see
// original_source/src/linkmgrd.c), generalized from its hardcoded
// single-route replace into default-route set/clear/match operations.
package routing

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Executor abstracts process execution for testing.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type systemExecutor struct{}

func (systemExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (systemExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Controller manages the default route through `ip route`.
type Controller struct {
	exec Executor
}

func New() *Controller { return &Controller{exec: systemExecutor{}} }

func NewWithExecutor(e Executor) *Controller { return &Controller{exec: e} }

// SetDefault installs (or replaces) the default route via gwIP over iface.
func (c *Controller) SetDefault(ctx context.Context, gwIP, iface string) error {
	if err := c.exec.Run(ctx, "ip", "route", "replace", "default", "via", gwIP, "dev", iface); err != nil {
		return fmt.Errorf("routing: replace default via %s dev %s: %w", gwIP, iface, err)
	}
	// Best effort: a stale ARP/neighbour entry for the previous gateway can
	// mask the route change; flushing is non-fatal if it fails.
	if err := c.exec.Run(ctx, "ip", "neigh", "flush", "dev", iface); err != nil {
		log.Printf("[routing] neigh flush dev %s: %v", iface, err)
	}
	return nil
}

// ClearDefault removes the default route over iface, if any.
func (c *Controller) ClearDefault(ctx context.Context, iface string) error {
	if err := c.exec.Run(ctx, "ip", "route", "del", "default", "dev", iface); err != nil {
		return fmt.Errorf("routing: del default dev %s: %w", iface, err)
	}
	return nil
}

// DefaultMatches reports whether the current default route already points
// at gwIP over iface, so the watchdog can skip a redundant replace.
func (c *Controller) DefaultMatches(ctx context.Context, gwIP, iface string) (bool, error) {
	out, err := c.exec.Output(ctx, "ip", "route", "show", "default", "dev", iface)
	if err != nil {
		return false, fmt.Errorf("routing: show default dev %s: %w", iface, err)
	}
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		for i, f := range fields {
			if f == "via" && i+1 < len(fields) && fields[i+1] == gwIP {
				return true, nil
			}
		}
	}
	return false, nil
}
