// Command linkmgrd is the link controller (L): it steers the host's
// default route toward whichever configured station currently has the
// best effective RSSI, subject to hysteresis, and self-heals the kernel
// route table against external interference. Structure follows the
// teacher's cmd/wmap/main.go (slog setup, signal.NotifyContext shutdown,
// goroutine-per-subsystem wiring).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snokvist/fpvcore/internal/adapters/httpapi/linkapi"
	"github.com/snokvist/fpvcore/internal/adapters/icmp"
	"github.com/snokvist/fpvcore/internal/adapters/routing"
	"github.com/snokvist/fpvcore/internal/adapters/stationdump"
	"github.com/snokvist/fpvcore/internal/adapters/storage"
	"github.com/snokvist/fpvcore/internal/adapters/systemclock"
	"github.com/snokvist/fpvcore/internal/config"
	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/core/ports"
	"github.com/snokvist/fpvcore/internal/core/services/link"
	"github.com/snokvist/fpvcore/internal/obs"
	"github.com/snokvist/fpvcore/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc := config.LoadLinkProcess()
	cfg, err := config.LoadLinkConfig(proc.CfgPath)
	if err != nil {
		slog.Error("load config", "path", proc.CfgPath, "error", err)
		os.Exit(1)
	}
	if len(cfg.Stations) == 0 {
		slog.Error("no stations configured", "path", proc.CfgPath)
		os.Exit(1)
	}

	shutdownTracer, err := obs.InitTracer("linkmgrd")
	if err != nil {
		slog.Warn("tracer init failed", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}
	telemetry.InitMetrics()

	var audit ports.AuditRepository
	if db, err := storage.New(proc.DBPath); err != nil {
		slog.Warn("audit db init failed, continuing without audit log", "error", err)
	} else {
		audit = db
		defer db.Close()
	}

	ctrl := link.New(cfg, stationdump.New(cfg.MasterIface), icmp.New(), routing.New(), audit, systemclock.New())

	router := linkapi.NewRouter(ctrl, time.Now())
	instrumented := otelhttp.NewHandler(router, "linkmgrd")
	srv := &http.Server{Addr: proc.HTTPAddr, Handler: instrumented}
	go func() {
		slog.Info("linkmgrd HTTP listening", "addr", proc.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	runLoop(ctx, ctrl, cfg)

	slog.Info("linkmgrd shutting down")
}

// runLoop drives poll/decide/watchdog on a single cooperative timer, per
// spec.md §5's single-threaded-loop invariant.
func runLoop(ctx context.Context, ctrl *link.Controller, cfg link.Config) {
	pollEvery := time.Duration(cfg.PollMs) * time.Millisecond
	if pollEvery <= 0 {
		pollEvery = 500 * time.Millisecond
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	lastVia := ctrl.Via()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ctrl.Poll(ctx)
			if err := ctrl.Decide(ctx); err != nil {
				slog.Debug("decide", "error", err)
			}
			if via := ctrl.Via(); via != lastVia {
				telemetry.RouteSwapsTotal.Inc()
				lastVia = via
			}
			if ctrl.State() == domain.StateDown {
				telemetry.StationsDown.Set(1)
			} else {
				telemetry.StationsDown.Set(0)
			}
			ctrl.Watchdog(ctx)
		}
	}
}
