// Package qos implements ports.QoSController over the `tc` command,
// grounded on trafficctrl.c's tc_setup()/tc_apply_rates() (see
// original_source/src/trafficctrl.c), reparented per DESIGN.md's HTB
// resolution: root `1:` -> single child `1:1` (RootKbps) -> four leaves
// 1:10/1:20/1:30/1:40, instead of the original's inconsistent `1:99`.
package qos

import (
	"context"
	"fmt"
	"log"
	"os/exec"

	"github.com/snokvist/fpvcore/internal/core/domain"
)

const rootClassID = "1:1"

var leafClassID = map[domain.ClassKind]string{
	domain.ClassVideo:   "1:10",
	domain.ClassMavlink: "1:20",
	domain.ClassTunnel:  "1:30",
	domain.ClassDefault: "1:40",
}

// Executor abstracts process execution for testing.
type Executor interface {
	Run(ctx context.Context, args ...string) error
}

type systemExecutor struct{}

func (systemExecutor) Run(ctx context.Context, args ...string) error {
	return exec.CommandContext(ctx, "tc", args...).Run()
}

// Controller manages one interface's HTB hierarchy.
type Controller struct {
	exec Executor
}

func New() *Controller { return &Controller{exec: systemExecutor{}} }

func NewWithExecutor(e Executor) *Controller { return &Controller{exec: e} }

func (c *Controller) run(ctx context.Context, args ...string) {
	if err := c.exec.Run(ctx, args...); err != nil {
		log.Printf("[qos] tc %v: %v", args, err)
	}
}

// InstallTree tears down any existing qdisc on iface and rebuilds the
// HTB hierarchy at the rates given by classes, plus leaf qdiscs and
// fwmark filters.
func (c *Controller) InstallTree(ctx context.Context, iface string, classes [4]domain.TrafficClass, rootKbps int) error {
	c.run(ctx, "qdisc", "del", "dev", iface, "root")
	c.run(ctx, "qdisc", "add", "dev", iface, "handle", "1:", "root", "htb", "default", "40")
	c.run(ctx, "class", "add", "dev", iface, "parent", "1:", "classid", rootClassID,
		"htb", "rate", kbit(rootKbps), "ceil", kbit(rootKbps))

	for _, class := range classes {
		classID, ok := leafClassID[class.Kind]
		if !ok {
			return fmt.Errorf("qos: unknown traffic class kind %q", class.Kind)
		}
		c.run(ctx, "class", "add", "dev", iface, "parent", rootClassID, "classid", classID,
			"htb", "rate", kbit(class.RateKbps), "ceil", kbit(class.CeilKbps),
			"prio", itoa(class.Priority))
		if err := c.exec.Run(ctx, "qdisc", "add", "dev", iface, "parent", classID, "fq_codel"); err != nil {
			c.run(ctx, "qdisc", "add", "dev", iface, "parent", classID, "pfifo")
		}
		c.run(ctx, "filter", "add", "dev", iface, "parent", "1:", "protocol", "ip", "prio", "1",
			"handle", itoa(class.Mark), "fw", "flowid", classID)
	}
	return nil
}

// ChangeClass updates one leaf class's rate/ceil without touching the
// tree shape, mirroring tc_apply_rates()'s per-class `tc class change`.
func (c *Controller) ChangeClass(ctx context.Context, iface string, class domain.TrafficClass) error {
	classID, ok := leafClassID[class.Kind]
	if !ok {
		return fmt.Errorf("qos: unknown traffic class kind %q", class.Kind)
	}
	return c.exec.Run(ctx, "class", "change", "dev", iface, "parent", rootClassID, "classid", classID,
		"htb", "rate", kbit(class.RateKbps), "ceil", kbit(class.CeilKbps), "prio", itoa(class.Priority))
}

func kbit(n int) string { return fmt.Sprintf("%dkbit", n) }
func itoa(n int) string { return fmt.Sprintf("%d", n) }
