// Package rtsched requests real-time scheduling for the RTP splitter
// daemon (wfbsniff does not call it), grounded on rtp_split.c's set_realtime()
// (original_source/src/rtp_split.c): SCHED_FIFO priority 20, mlockall,
// and single-core CPU affinity. Every step is best-effort — failures are
// logged, never fatal, matching the original's "ignore errors" comment.
package rtsched

import (
	"log"

	"golang.org/x/sys/unix"
)

const fifoPriority = 20

// Enable requests SCHED_FIFO, locks the process's memory, and (if cpu
// >= 0) pins it to that CPU core. Call once at startup.
func Enable(cpu int) {
	if err := setSchedFIFO(fifoPriority); err != nil {
		log.Printf("[rtsched] sched_setscheduler(SCHED_FIFO): %v", err)
	}
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		log.Printf("[rtsched] mlockall: %v", err)
	}
	if cpu >= 0 {
		if err := setAffinity(cpu); err != nil {
			log.Printf("[rtsched] sched_setaffinity(cpu=%d): %v", cpu, err)
		}
	}
}

func setSchedFIFO(priority int) error {
	return unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: int32(priority)})
}

func setAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
