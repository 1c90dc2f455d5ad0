// Package query implements the batch/leaderboard query engine: bulk
// ownership snapshots over a tile-id range and per-country aggregate
// scores.
package query

import (
	"sort"

	"github.com/clickplanet/clickplanet/internal/apierr"
	"github.com/clickplanet/clickplanet/internal/model"
	"github.com/clickplanet/clickplanet/internal/store"
)

// Engine is a thin facade over store.Store enforcing the batch-width and
// tile-domain bounds.
type Engine struct {
	store    store.Store
	maxTile  int32
	maxBatch int32
}

// Config configures a new Engine.
type Config struct {
	Store    store.Store
	MaxTile  int32
	MaxBatch int32
}

// New builds an Engine.
func New(cfg Config) *Engine {
	maxTile := cfg.MaxTile
	if maxTile <= 0 {
		maxTile = model.MaxTile
	}
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = model.MaxBatch
	}
	return &Engine{store: cfg.Store, maxTile: maxTile, maxBatch: maxBatch}
}

// OwnershipsByBatch returns every owned tile in [start, end), rejecting
// a range wider than the configured batch maximum.
func (e *Engine) OwnershipsByBatch(req model.BatchRequest) ([]model.Ownership, error) {
	if req.StartTileID < 0 || req.EndTileID < req.StartTileID || req.EndTileID > e.maxTile {
		return nil, apierr.New(apierr.InvalidArgument, "batch range out of domain")
	}
	if req.EndTileID-req.StartTileID > e.maxBatch {
		return nil, apierr.New(apierr.InvalidArgument, "batch range exceeds max batch width")
	}
	return e.store.Scan(req.StartTileID, req.EndTileID)
}

// OwnershipsAll is the legacy full dump over the whole tile domain. It is
// returned unpaged; callers must tolerate large responses.
func (e *Engine) OwnershipsAll() ([]model.Ownership, error) {
	return e.store.Scan(0, e.maxTile)
}

// Leaderboard returns every country holding at least one tile, ordered by
// descending score, ties broken by ascending country code.
func (e *Engine) Leaderboard() []model.LeaderboardEntry {
	counts := e.store.CountByCountry()
	entries := make([]model.LeaderboardEntry, 0, len(counts))
	for countryID, score := range counts {
		if score == 0 {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{CountryID: countryID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].CountryID < entries[j].CountryID
	})
	return entries
}
