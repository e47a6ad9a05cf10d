// Command trafficctrl is the adaptive traffic shaper (T): it reads PHY
// capacity telemetry, smooths it, and (re)installs an HTB class hierarchy
// whose rates track the estimated link capacity. Structure follows the
// teacher's cmd/wmap/main.go (slog setup, signal.NotifyContext shutdown).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snokvist/fpvcore/internal/adapters/httpapi/shaperapi"
	"github.com/snokvist/fpvcore/internal/adapters/qos"
	"github.com/snokvist/fpvcore/internal/adapters/storage"
	"github.com/snokvist/fpvcore/internal/adapters/systemclock"
	"github.com/snokvist/fpvcore/internal/adapters/telemetryfile"
	"github.com/snokvist/fpvcore/internal/config"
	"github.com/snokvist/fpvcore/internal/core/ports"
	"github.com/snokvist/fpvcore/internal/core/services/shaper"
	"github.com/snokvist/fpvcore/internal/obs"
	"github.com/snokvist/fpvcore/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc := config.LoadShaperProcess()
	cfg, err := config.LoadShaperConfig(proc.CfgPath)
	if err != nil {
		slog.Error("load config", "path", proc.CfgPath, "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := obs.InitTracer("trafficctrl")
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

	telem := telemetryfile.New(cfg.TelemFile, cfg.KeyMCS, cfg.KeyWidth)
	sh := shaper.New(cfg, telem, qos.New(), audit, systemclock.New())
	if err := sh.InstallTree(ctx); err != nil {
		slog.Warn("initial HTB tree install failed, will retry on next apply", "error", err)
	}

	api := shaperapi.New(sh, proc.CfgPath)
	router := shaperapi.NewRouter(api)
	instrumented := otelhttp.NewHandler(router, "trafficctrl")
	srv := &http.Server{Addr: proc.HTTPAddr, Handler: instrumented}
	go func() {
		slog.Info("trafficctrl HTTP listening", "addr", proc.HTTPAddr)
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

	runLoop(ctx, sh, api, proc.CfgPath)

	slog.Info("trafficctrl shutting down")
}

// runLoop ticks the shaper once per second and re-reads the config /
// reinstalls the class hierarchy whenever a reload is pending, per
// spec.md §4.2's reload semantics.
func runLoop(ctx context.Context, sh *shaper.Shaper, api *shaperapi.Server, cfgPath string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastApplyMs := int64(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if api.ReloadRequested() {
				if cfg, err := config.LoadShaperConfig(cfgPath); err != nil {
					slog.Error("reload config", "error", err)
				} else {
					sh.SetConfig(cfg)
					if err := sh.InstallTree(ctx); err != nil {
						slog.Error("reinstall HTB tree", "error", err)
					}
					slog.Info("config reloaded")
				}
				api.ClearReload()
			}

			if err := sh.Tick(ctx); err != nil {
				slog.Debug("tick", "error", err)
			}

			snap := sh.Snapshot()
			if snap.LastApplyMs != lastApplyMs {
				lastApplyMs = snap.LastApplyMs
				telemetry.RateApplyTotal.Inc()
				telemetry.AllocKbps.Set(float64(snap.Rates.AllocTotalKbps))
				api.BroadcastSnapshot()
			}
		}
	}
}
