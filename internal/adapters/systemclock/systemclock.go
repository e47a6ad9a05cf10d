// Package systemclock implements ports.Clock over the wall clock, the only
// production implementation; tests use their own fake per spec.md's
// deterministic-hysteresis testing requirement (see link/shaper _test.go).
package systemclock

import "time"

type Clock struct{}

func New() Clock { return Clock{} }

func (Clock) NowMs() int64 { return time.Now().UnixMilli() }
