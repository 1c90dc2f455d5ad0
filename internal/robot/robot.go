// Package robot implements the safeguard robot's compensating-click
// semantics: for every notification whose tile_id belongs to a configured
// target country's tile set and whose country_id differs from the wanted
// country, issue a compensating click reclaiming the tile for the wanted
// country. Rate-limiting and deduplication are the robot's own
// responsibility; this package owns both so the server never has to
// trust the robot's pacing.
package robot

import (
	"context"
	"log"
	"time"

	"github.com/maypok86/otter"

	"github.com/clickplanet/clickplanet/internal/model"
	"github.com/clickplanet/clickplanet/internal/robotclient"
)

// Config configures a Robot.
type Config struct {
	Client          *robotclient.Client
	TargetCountry   string         // watched country, lowercased
	WantedCountry   string         // country to reclaim tiles for, lowercased
	TargetTiles     map[int32]bool // tile set belonging to TargetCountry; nil means "every tile"
	ReclickCooldown time.Duration  // minimum gap between compensating clicks on the same tile
}

// Robot watches the broadcast stream and re-claims tiles for its wanted
// country.
type Robot struct {
	client        *robotclient.Client
	targetCountry string
	wantedCountry string
	targetTiles   map[int32]bool
	cooldown      otter.Cache[int32, struct{}]
}

// New builds a Robot.
func New(cfg Config) (*Robot, error) {
	cooldown := cfg.ReclickCooldown
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	cache, err := otter.MustBuilder[int32, struct{}](4096).
		Cost(func(_ int32, _ struct{}) uint32 { return 1 }).
		WithTTL(cooldown).
		Build()
	if err != nil {
		return nil, err
	}
	return &Robot{
		client:        cfg.Client,
		targetCountry: cfg.TargetCountry,
		wantedCountry: cfg.WantedCountry,
		targetTiles:   cfg.TargetTiles,
		cooldown:      cache,
	}, nil
}

// Run subscribes to the server's broadcast stream and reacts until ctx is
// canceled.
func (r *Robot) Run(ctx context.Context) error {
	return r.client.Listen(ctx, r.onNotification)
}

func (r *Robot) onNotification(n model.UpdateNotification) {
	if !r.inScope(n.TileID) {
		return
	}
	if n.CountryID == r.wantedCountry {
		return
	}
	if _, dup := r.cooldown.Get(n.TileID); dup {
		return
	}
	r.cooldown.Set(n.TileID, struct{}{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.client.Click(ctx, n.TileID, r.wantedCountry); err != nil {
		log.Printf("[robot] compensating click for tile %d failed: %v", n.TileID, err)
	}
}

func (r *Robot) inScope(tileID int32) bool {
	if r.targetTiles == nil {
		return true
	}
	return r.targetTiles[tileID]
}
