// Package coordinator implements the click coordinator: validates a
// ClickRequest, resolves the previous owner, writes the new ownership, and
// publishes an UpdateNotification.
package coordinator

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clickplanet/clickplanet/internal/apierr"
	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/config"
	"github.com/clickplanet/clickplanet/internal/model"
	"github.com/clickplanet/clickplanet/internal/store"
)

// Clock is the time source used to stamp writes; overridable in tests.
type Clock func() uint64

func systemClock() uint64 { return uint64(time.Now().UnixNano()) }

// Coordinator is stateless per request: every call to Click depends only
// on its arguments and the Store/Bus it was built with.
type Coordinator struct {
	store   store.Store
	bus     *bus.Bus
	maxTile int32
	now     Clock

	// onPartialCommit, if set, is invoked when a write succeeds but the
	// publish fails. It never affects the response returned to the caller.
	onPartialCommit func(model.Ownership, error)

	// onCommit, if set, is invoked after a successful write+publish for
	// every click that actually changed ownership (the no-op short
	// circuit of step 3 never calls it). Used to feed the click audit log
	// without coupling the coordinator to requestlog directly.
	onCommit func(prevCountryID string, o model.Ownership, clickID string)
}

// Config configures a new Coordinator.
type Config struct {
	Store           store.Store
	Bus             *bus.Bus
	MaxTile         int32
	Now             Clock // optional, defaults to system wall clock
	OnPartialCommit func(model.Ownership, error)
	OnCommit        func(prevCountryID string, o model.Ownership, clickID string)
}

// New builds a Coordinator.
func New(cfg Config) *Coordinator {
	now := cfg.Now
	if now == nil {
		now = systemClock
	}
	maxTile := cfg.MaxTile
	if maxTile <= 0 {
		maxTile = model.MaxTile
	}
	return &Coordinator{
		store:           cfg.Store,
		bus:             cfg.Bus,
		maxTile:         maxTile,
		now:             now,
		onPartialCommit: cfg.OnPartialCommit,
		onCommit:        cfg.OnCommit,
	}
}

// Click processes one claim: normalize and validate, resolve the
// previous owner, short-circuit no-ops, stamp, write, publish,
// acknowledge.
func (c *Coordinator) Click(req model.ClickRequest) (model.ClickResponse, error) {
	if req.TileID < 0 || req.TileID >= c.maxTile {
		return model.ClickResponse{}, apierr.New(apierr.InvalidArgument,
			"tile_id out of range")
	}
	// Country codes are case-insensitive on the wire, normalized
	// lowercase on ingress.
	req.CountryID = strings.ToLower(req.CountryID)
	if !config.IsLowerAlpha2(req.CountryID) {
		return model.ClickResponse{}, apierr.New(apierr.InvalidArgument,
			"country_id must be a 2-letter country code")
	}

	prev, had, err := c.store.Get(req.TileID)
	if err != nil {
		return model.ClickResponse{}, apierr.New(apierr.StoreUnavailable, err.Error())
	}
	prevCountry := ""
	if had {
		prevCountry = prev.CountryID
	}

	// A re-click by the current owner is accepted but writes and
	// publishes nothing.
	if prevCountry == req.CountryID {
		return model.ClickResponse{TimestampNs: prev.TimestampNs, ClickID: ""}, nil
	}

	// Timestamps stay strictly increasing per tile even if the system
	// clock regressed.
	ts := c.now()
	if had && ts <= prev.TimestampNs {
		ts = prev.TimestampNs + 1
	}
	clickID := uuid.NewString()

	newOwnership := model.Ownership{TileID: req.TileID, CountryID: req.CountryID, TimestampNs: ts}
	if err := c.store.Put(newOwnership); err != nil {
		return model.ClickResponse{}, apierr.New(apierr.StoreUnavailable, err.Error())
	}

	// A publish failure never fails the caller: the ownership is already
	// real, listeners catch up via snapshot.
	notification := model.UpdateNotification{
		TileID:            req.TileID,
		CountryID:         req.CountryID,
		PreviousCountryID: prevCountry,
	}
	if err := c.bus.Publish(bus.Envelope{Notification: notification, DedupKey: clickID}); err != nil {
		if c.onPartialCommit != nil {
			c.onPartialCommit(newOwnership, err)
		}
	}

	if c.onCommit != nil {
		c.onCommit(prevCountry, newOwnership, clickID)
	}

	return model.ClickResponse{TimestampNs: ts, ClickID: clickID}, nil
}
