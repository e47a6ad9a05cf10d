// Command wfbsniff is the sniffer/UDP forwarder (S): it captures raw 802.11
// frames off a monitor-mode interface, validates and unwraps their inner
// UDP datagram per the radiotap/802.11/IP pipeline, and forwards accepted
// datagrams to a loopback UDP destination via a batched vectored send.
// Structure follows the teacher's cmd/wmap/main.go (slog setup,
// signal.NotifyContext shutdown); wfbsniff has no HTTP surface of its own
// in spec.md beyond /metrics, served on a small dedicated mux.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snokvist/fpvcore/internal/adapters/sniffer"
	"github.com/snokvist/fpvcore/internal/config"
	"github.com/snokvist/fpvcore/internal/obs"
	"github.com/snokvist/fpvcore/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc := config.LoadSnifferProcess()
	filter, err := proc.Filter()
	if err != nil {
		slog.Error("parse filter flags", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := obs.InitTracer("wfbsniff")
	if err != nil {
		slog.Warn("tracer init failed", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}
	telemetry.InitMetrics()

	forwardIP, forwardPort, err := splitHostPort(proc.ForwardTo)
	if err != nil {
		slog.Error("parse forward-to", "value", proc.ForwardTo, "error", err)
		os.Exit(1)
	}

	runner, err := sniffer.NewRunner(sniffer.Config{
		Iface:      proc.Iface,
		Filter:     filter,
		ForwardIP:  forwardIP,
		ForwardPrt: forwardPort,
		BatchSize:  64,
		StatsEvery: time.Duration(proc.StatsEvery) * time.Millisecond,
	})
	if err != nil {
		slog.Error("open capture", "iface", proc.Iface, "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":9101", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetry.FramesReceived.WithLabelValues(proc.Iface)
	telemetry.FramesForwarded.WithLabelValues(proc.Iface)
	telemetry.FramesBadFCS.WithLabelValues(proc.Iface)

	slog.Info("wfbsniff capturing", "iface", proc.Iface, "forward_to", proc.ForwardTo)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("capture loop failed", "error", err)
		os.Exit(1)
	}
	slog.Info("wfbsniff shutting down")
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
