// Command rtpsplit is the RTP duplicator (R): it listens for UDP datagrams
// on a loopback socket and replicates each one, per the currently selected
// mode, to one or two destinations. Structure follows the teacher's
// cmd/wmap/main.go (slog setup, signal.NotifyContext shutdown); rtpsplit
// runs real-time scheduled per spec.md §4.4, so its only HTTP surface is
// /metrics on a small dedicated mux, kept off the hot path.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snokvist/fpvcore/internal/adapters/rtpsplit"
	"github.com/snokvist/fpvcore/internal/adapters/rtsched"
	"github.com/snokvist/fpvcore/internal/config"
	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/obs"
	"github.com/snokvist/fpvcore/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc := config.LoadRTPSplitProcess()

	shutdownTracer, err := obs.InitTracer("rtpsplit")
	if err != nil {
		slog.Warn("tracer init failed", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}
	telemetry.InitMetrics()

	if proc.Realtime {
		rtsched.Enable(proc.CPUAffinityCore)
	}

	splitter, err := rtpsplit.New(rtpsplit.Config{
		ListenAddr:    proc.ListenAddr,
		UnicastAddr:   proc.UnicastAddr,
		BroadcastAddr: proc.BroadcastAddr,
		AltPort:       proc.AltPort,
		BatchSize:     proc.BatchSize,
		StatsEvery:    time.Duration(proc.StatsEvery) * time.Millisecond,
		StartMode:     domain.ModeUnicast,
	})
	if err != nil {
		slog.Error("open splitter", "error", err)
		os.Exit(1)
	}
	defer splitter.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":9102", Handler: mux}
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

	go splitter.ListenSignals(ctx)

	slog.Info("rtpsplit listening", "addr", proc.ListenAddr, "mode", splitter.Mode())
	if err := splitter.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("split loop failed", "error", err)
		os.Exit(1)
	}
	slog.Info("rtpsplit shutting down")
}
