// Package telemetry exposes the four daemons' Prometheus metrics,
// adapted from the teacher's sync.Once-guarded CounterVec registration
// pattern (internal/telemetry/metrics.go) onto fpvcore's own counters.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Link controller (L)
	RouteSwapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fpvcore", Subsystem: "link",
		Name: "route_swaps_total", Help: "Total default-route swaps committed by the link controller.",
	})
	StationsDown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpvcore", Subsystem: "link",
		Name: "stations_down", Help: "1 when no station is viable (state=down), else 0.",
	})

	// Traffic shaper (T)
	RateApplyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fpvcore", Subsystem: "shaper",
		Name: "rate_apply_total", Help: "Total HTB rate applications.",
	})
	AllocKbps = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpvcore", Subsystem: "shaper",
		Name: "alloc_kbps", Help: "Currently applied total allocated capacity in kbit/s.",
	})

	// Sniffer (S)
	FramesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fpvcore", Subsystem: "sniffer",
		Name: "frames_received_total", Help: "Total frames accepted by the filter pipeline (post-FCS, post-filter).",
	}, []string{"interface"})
	FramesForwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fpvcore", Subsystem: "sniffer",
		Name: "frames_forwarded_total", Help: "Total UDP datagrams forwarded.",
	}, []string{"interface"})
	FramesBadFCS = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fpvcore", Subsystem: "sniffer",
		Name: "frames_bad_fcs_total", Help: "Total frames dropped for a radiotap bad-FCS flag.",
	}, []string{"interface"})

	// RTP splitter (R)
	PacketsSplit = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fpvcore", Subsystem: "rtpsplit",
		Name: "packets_sent_total", Help: "Total replicated packets sent.",
	}, []string{"mode"})
	SeqGapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fpvcore", Subsystem: "rtpsplit",
		Name: "seq_gaps_total", Help: "Total non-contiguous RTP sequence number jumps observed on the loopback listener.",
	})

	once sync.Once
)

// InitMetrics registers every collector with the default registry. Safe
// to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(
			RouteSwapsTotal,
			StationsDown,
			RateApplyTotal,
			AllocKbps,
			FramesReceived,
			FramesForwarded,
			FramesBadFCS,
			PacketsSplit,
			SeqGapsTotal,
		)
	})
}
