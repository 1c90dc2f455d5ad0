// Command clickplanetd is the ClickPlanet server: it wires the ownership
// store, event bus, click coordinator, broadcast hub, and query engine
// behind the HTTP/WebSocket surface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/clickplanet/clickplanet/internal/api"
	"github.com/clickplanet/clickplanet/internal/broadcast"
	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/config"
	"github.com/clickplanet/clickplanet/internal/coordinator"
	"github.com/clickplanet/clickplanet/internal/model"
	"github.com/clickplanet/clickplanet/internal/persister"
	"github.com/clickplanet/clickplanet/internal/query"
	"github.com/clickplanet/clickplanet/internal/requestlog"
	"github.com/clickplanet/clickplanet/internal/scanloop"
	"github.com/clickplanet/clickplanet/internal/store"
)

var startedAt = time.Now()

func main() {
	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		fatalf("%v", err)
	}

	if err := os.MkdirAll(envCfg.StateDir, 0o755); err != nil {
		fatalf("create state dir %s: %v", envCfg.StateDir, err)
	}

	// Phase 1: durable ownership store, rebuilding the mirror before the
	// server is allowed to advertise readiness.
	ownershipStore, err := store.Open(filepath.Join(envCfg.StateDir, "ownership.db"), envCfg.StorePoolSize)
	if err != nil {
		fatalf("ownership store open: %v", err)
	}
	log.Println("Ownership store opened, mirror rebuilt")

	// Phase 2: event bus.
	eventBus, err := bus.New(bus.Config{
		ShardCount:    envCfg.BusShardCount,
		DedupCapacity: envCfg.DedupCacheCapacity,
		DedupTTL:      envCfg.DedupTTL.Std(),
	})
	if err != nil {
		fatalf("event bus init: %v", err)
	}
	log.Println("Event bus initialized")

	// Phase 3: click audit log, an observability sink that never sits on
	// the click-ingestion hot path.
	requestlogRepo, err := requestlog.NewRepo(filepath.Join(envCfg.StateDir, "click_log.db"))
	if err != nil {
		fatalf("click log repo open: %v", err)
	}
	requestlogSvc := requestlog.NewService(requestlog.ServiceConfig{Repo: requestlogRepo})
	requestlogSvc.Start()
	log.Println("Click log service started")

	// Phase 4: click coordinator, feeding the audit log on every commit
	// and logging (never failing the caller on) partial commits.
	clickCoordinator := coordinator.New(coordinator.Config{
		Store:   ownershipStore,
		Bus:     eventBus,
		MaxTile: envCfg.MaxTile,
		OnPartialCommit: func(o model.Ownership, err error) {
			log.Printf("[clickplanetd] partial commit on tile %d: %v", o.TileID, err)
		},
		OnCommit: func(prevCountryID string, o model.Ownership, clickID string) {
			requestlogSvc.Emit(requestlog.FromNotification(
				model.UpdateNotification{TileID: o.TileID, CountryID: o.CountryID, PreviousCountryID: prevCountryID},
				clickID, o.TimestampNs,
			))
		},
	})
	log.Println("Click coordinator initialized")

	// Phase 5: broadcast hub and query engine.
	hub := broadcast.New(broadcast.Config{Bus: eventBus, ShardCount: envCfg.BroadcastShards})
	queryEngine := query.New(query.Config{Store: ownershipStore, MaxTile: envCfg.MaxTile, MaxBatch: envCfg.MaxBatch})
	log.Println("Broadcast hub and query engine initialized")

	// Phase 6: optional catch-up persister, gated by
	// CLICKPLANET_PERSISTER_MODE. The coordinator above keeps writing
	// inline; the persister applies only bus notifications the local
	// store has not seen (writes from other instances sharing the bus)
	// and drives the periodic reconciliation sweep.
	var persisterWorker *persister.Worker
	var statsStop chan struct{}
	if envCfg.PersisterMode {
		persisterWorker = persister.New(persister.Config{
			Store:             ownershipStore,
			Bus:               eventBus,
			ReconcileSchedule: envCfg.ReconcileSchedule,
			MaxTile:           envCfg.MaxTile,
		})
		persisterWorker.Start()
		log.Println("Persister worker started (split-write mode)")
	} else {
		statsStop = make(chan struct{})
		go scanloop.Run(statsStop, scanloop.DefaultMinInterval, scanloop.DefaultJitterRange, func() {
			logLiveStats(queryEngine)
		})
		log.Println("Stats housekeeping loop started")
	}

	// Phase 7: HTTP/WebSocket server.
	var storeReady atomic.Bool
	storeReady.Store(true)
	srv := api.NewServer(api.Config{
		ListenAddress:    envCfg.ListenAddress,
		Port:             envCfg.HTTPPort,
		Coordinator:      clickCoordinator,
		Query:            queryEngine,
		Hub:              hub,
		StorePoolSize:    envCfg.StorePoolSize,
		APIMaxBodyBytes:  envCfg.APIMaxBodyBytes,
		SessionQueueSize: envCfg.SessionQueueSize,
		StartedAt:        startedAt,
		StoreReady:       storeReady.Load,
	})

	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("clickplanetd listening on %s:%d", envCfg.ListenAddress, envCfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil {
			serverErrCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runtimeErr error
	select {
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down...", sig)
	case err := <-serverErrCh:
		runtimeErr = err
		log.Printf("Received server runtime error (%v), shutting down...", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	storeReady.Store(false)
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")

	if statsStop != nil {
		close(statsStop)
		log.Println("Stats housekeeping loop stopped")
	}
	if persisterWorker != nil {
		persisterWorker.Stop()
		log.Println("Persister worker stopped")
	}

	requestlogSvc.Stop()
	log.Println("Click log service stopped")
	if err := requestlogRepo.Close(); err != nil {
		log.Printf("Click log repo close error: %v", err)
	}

	if err := ownershipStore.Close(); err != nil {
		log.Printf("Ownership store close error: %v", err)
	}
	log.Println("Ownership store closed")

	if runtimeErr != nil {
		fatalf("runtime server error: %v", runtimeErr)
	}
}

func logLiveStats(q *query.Engine) {
	entries := q.Leaderboard()
	log.Printf("[clickplanetd] %d countries hold tiles", len(entries))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", args...)
	os.Exit(1)
}
