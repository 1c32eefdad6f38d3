package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spikewatch/spikewatch/internal/api"
	"github.com/spikewatch/spikewatch/internal/auth"
	"github.com/spikewatch/spikewatch/internal/config"
	"github.com/spikewatch/spikewatch/internal/hostbridge"
	"github.com/spikewatch/spikewatch/internal/metrics"
	"github.com/spikewatch/spikewatch/internal/registry"
	"github.com/spikewatch/spikewatch/internal/runner"
	"github.com/spikewatch/spikewatch/internal/settings"
	"github.com/spikewatch/spikewatch/internal/store"
	"github.com/spikewatch/spikewatch/internal/ws"
	"github.com/spikewatch/spikewatch/pkg/scan"
	"github.com/spikewatch/spikewatch/pkg/scene"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	scanOnce := flag.Bool("scan-once", false, "run one scan over the configured watch list, print the report, and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("spikewatchd starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.HTTPPort,
		"host_endpoint", cfg.Host.Endpoint,
		"auth_mode", cfg.Auth.Mode,
		"result_ttl", cfg.Results.TTL,
		"watch", len(cfg.Watch),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	host, err := hostbridge.New(cfg.Host)
	if err != nil {
		slog.Error("failed to build host bridge", "err", err)
		os.Exit(1)
	}

	// Seed the watch list from the config. API additions accumulate on top
	// and survive config reloads.
	reg := registry.New()
	seedWatchlist(reg, cfg)

	if *scanOnce {
		os.Exit(runOnce(ctx, host, reg))
	}

	// Scan record store with background TTL eviction.
	st := store.New(cfg.Results.TTL)
	go st.Run(ctx)

	mc := metrics.New()
	run := runner.New(ctx, host, reg, st, mc, cfg.Scan.ProgressStepPct)

	// Watch config file for hot-reload: new watch seeds are added, existing
	// entries (and API additions) are kept.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			seedWatchlist(reg, updated)
			slog.Info("config hot-reloaded", "watch", len(updated.Watch), "watched_attrs", reg.Count())
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// WebSocket hub — pushes scan status to UI clients on every tick.
	hub := ws.New(run, st, cfg.Scan.BroadcastInterval)
	go hub.Run(ctx)

	// Combined HTTP server: REST API (behind auth), WebSocket hub, metrics.
	apiAuth := auth.APIKeyMiddleware(cfg.Auth.Mode, cfg.Auth.EffectiveHeader(), cfg.Auth.Key())
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiAuth(api.New(reg, run, st, host, settings.New(host), cfg.Scan.DefaultThreshold)))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", mc)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("spikewatchd shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}

// seedWatchlist adds the config's watch entries to the registry. Entries
// already present keep their current threshold.
func seedWatchlist(reg *registry.Registry, cfg *config.Config) {
	for _, w := range cfg.Watch {
		threshold := cfg.Scan.DefaultThreshold
		if w.Threshold != nil {
			threshold = *w.Threshold
		}
		if _, added := reg.Add(w.Ref, threshold); added {
			slog.Info("watching attribute", "ref", w.Ref, "threshold", threshold)
		}
	}
}

// runOnce executes a single scan over the host's playback range and prints
// the plain-text report to stdout. Returns the process exit code: 0 on a
// clean scan, 1 on error, 2 when spikes were found.
func runOnce(ctx context.Context, host scene.Host, reg *registry.Registry) int {
	attrs := reg.ScanAttrs()
	if len(attrs) == 0 {
		slog.Error("watch list is empty — configure watch entries to scan")
		return 1
	}

	res, err := scan.Run(ctx, host, scan.Request{Attrs: attrs}, nil)
	if err != nil {
		slog.Error("scan failed", "err", err)
		return 1
	}

	fmt.Print(scan.FormatResult(res))
	if len(res) > 0 {
		return 2
	}
	return 0
}
