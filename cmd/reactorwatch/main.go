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
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reactorwatch/reactorwatch/internal/alerts"
	"github.com/reactorwatch/reactorwatch/internal/api"
	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/cycle"
	"github.com/reactorwatch/reactorwatch/internal/export"
	"github.com/reactorwatch/reactorwatch/internal/publish"
	"github.com/reactorwatch/reactorwatch/internal/source"
	"github.com/reactorwatch/reactorwatch/internal/state"
	"github.com/reactorwatch/reactorwatch/internal/store"
	"github.com/reactorwatch/reactorwatch/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("reactorwatch starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"reactors", len(cfg.Reactors),
		"cycle_interval", cfg.Monitor.CycleInterval,
		"http_port", cfg.Server.HTTPPort,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Persistent feed-event log.
	events, err := store.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("failed to open event store", "path", cfg.Storage.Path, "err", err)
		os.Exit(1)
	}
	defer events.Close()

	// Snapshot holder with background TTL eviction.
	snapshots := state.NewHolder(cfg.Server.SnapshotTTL)
	go snapshots.Run(ctx)

	// Alerts engine — evaluates rules on every cycle snapshot.
	alertEngine := alerts.New(cfg.Server.Alerts)

	// Optional Kafka publisher; nil when no brokers are configured.
	publisher, err := publish.NewKafka(cfg.Kafka)
	if err != nil {
		slog.Error("failed to build kafka publisher", "err", err)
		os.Exit(1)
	}
	if publisher != nil {
		defer publisher.Close()
		slog.Info("kafka publishing enabled", "topic", cfg.Kafka.Topic)
	}

	annotations, err := export.OpenAnnotationLog(cfg.Export.Dir)
	if err != nil {
		slog.Error("failed to open annotation log", "dir", cfg.Export.Dir, "err", err)
		os.Exit(1)
	}

	// WebSocket hub — periodic full broadcast plus per-cycle pushes.
	hub := ws.New(snapshots, 5*time.Second)
	go hub.Run(ctx)

	// One analysis pipeline per reactor.
	started := 0
	for _, r := range cfg.Reactors {
		provider, err := source.New(r.Source)
		if err != nil {
			slog.Error("skipping reactor — could not build source", "reactor", r.ID, "err", err)
			continue
		}
		runner := cycle.NewRunner(r, cfg.Monitor, cfg.Feeds, cycle.Deps{
			Provider:  provider,
			Events:    events,
			Snapshots: snapshots,
			Alerts:    alertEngine,
			Publisher: publisher,
			Broadcast: hub.Notify,
		})
		go runner.Run(ctx)
		started++
		slog.Info("registered reactor", "id", r.ID, "source", r.Source.Type, "kla", r.Kla)
	}
	if started == 0 {
		slog.Warn("no reactors configured — monitor will idle")
	}

	// Watch config file for hot-reload (logs only in this phase).
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded", "reactors", len(updated.Reactors))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Combined HTTP server: REST API, WebSocket hub and Prometheus
	// exposition on one port.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(snapshots, events, alertEngine, annotations, cfg.Feeds, cfg.Server.SnapshotTTL))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("reactorwatch shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
