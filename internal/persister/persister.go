// Package persister implements an optional catch-up worker: it drains
// the event bus into the ownership store so that writes committed on
// other instances sharing the bus (or lost to a local partial commit)
// land in this instance's store. The coordinator keeps writing inline;
// the drain only touches tiles whose stored owner disagrees with the
// notification, so the coordinator's timestamps are never overwritten.
// It also runs a cron-scheduled reconciliation pass that re-scans the
// store and republishes tiles whose notifications may have been dropped.
//
// The worker is gated behind cmd/clickplanetd's persister mode and is
// never required for correctness of a single-instance deployment.
package persister

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/model"
	"github.com/clickplanet/clickplanet/internal/store"
)

// Worker applies bus notifications the local store has not seen and
// periodically reconciles store/bus drift.
type Worker struct {
	store store.Store
	bus   *bus.Bus
	sub   *bus.Subscription
	cron  *cron.Cron

	reconcileSchedule string
	maxTile           int32

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// Config configures a new Worker.
type Config struct {
	Store store.Store
	Bus   *bus.Bus

	// ReconcileSchedule is a standard cron expression (e.g. "@every 30s")
	// controlling how often the reconciliation pass runs.
	ReconcileSchedule string
	MaxTile           int32
}

// New builds a Worker. It does not start background goroutines until
// Start is called.
func New(cfg Config) *Worker {
	return &Worker{
		store:             cfg.Store,
		bus:               cfg.Bus,
		reconcileSchedule: cfg.ReconcileSchedule,
		maxTile:           cfg.MaxTile,
		stopCh:            make(chan struct{}),
	}
}

// Start subscribes to the fan-in bus subject and begins draining
// notifications into the store; it also starts the cron-scheduled
// reconciliation pass if a schedule was configured.
func (w *Worker) Start() {
	w.sub = w.bus.Subscribe(bus.AllTiles())

	w.wg.Add(1)
	go w.drainLoop()

	if w.reconcileSchedule != "" {
		w.cron = cron.New()
		_, err := w.cron.AddFunc(w.reconcileSchedule, func() {
			w.reconcile(w.maxTile)
		})
		if err != nil {
			log.Printf("[persister] invalid reconcile schedule %q: %v", w.reconcileSchedule, err)
		} else {
			w.cron.Start()
		}
	}
}

// drainLoop applies received notifications to the local store as a
// catch-up pass. A notification carries no timestamp, so the drain never
// overwrites a record that already agrees on the owner — the writing
// coordinator's clock-clamped timestamp stays authoritative. Only when
// the store disagrees (the write landed on another instance's store, or
// was lost) does the drain write, stamping max(now, prev+1) to keep
// per-tile timestamps increasing.
func (w *Worker) drainLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case n := <-w.sub.C():
			w.apply(n)
		}
	}
}

func (w *Worker) apply(n model.UpdateNotification) {
	prev, had, err := w.store.Get(n.TileID)
	if err != nil {
		log.Printf("[persister] get tile %d failed: %v", n.TileID, err)
		return
	}
	if had && prev.CountryID == n.CountryID {
		return
	}

	ts := uint64(time.Now().UnixNano())
	if had && ts <= prev.TimestampNs {
		ts = prev.TimestampNs + 1
	}
	o := model.Ownership{TileID: n.TileID, CountryID: n.CountryID, TimestampNs: ts}
	if err := w.store.Put(o); err != nil {
		log.Printf("[persister] put tile %d failed: %v", o.TileID, err)
	}
}

// reconcile re-scans the store and republishes any tile whose notification
// may have been dropped on the bus (at-least-once is assumed upstream;
// this is a defensive catch-up, not a correctness requirement of the
// inline-write default path).
func (w *Worker) reconcile(maxTile int32) {
	if maxTile <= 0 {
		maxTile = model.MaxTile
	}
	ownerships, err := w.store.Scan(0, maxTile)
	if err != nil {
		log.Printf("[persister] reconcile scan failed: %v", err)
		return
	}
	for _, o := range ownerships {
		_ = w.bus.Publish(bus.Envelope{
			Notification: model.UpdateNotification{TileID: o.TileID, CountryID: o.CountryID},
		})
	}
	log.Printf("[persister] reconcile pass republished %d tiles", len(ownerships))
}

// Stop unsubscribes from the bus, stops the cron scheduler, and waits for
// the drain loop to finish.
func (w *Worker) Stop() {
	close(w.stopCh)
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	w.wg.Wait()
}
