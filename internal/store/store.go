// Package store implements the ownership store: a durable
// tile_id -> (country_id, timestamp_ns) map with an in-memory accelerator
// rebuilt from cold storage on startup.
package store

import (
	"database/sql"
	"fmt"
	"sort"
	"sync/atomic"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/clickplanet/clickplanet/internal/apierr"
	"github.com/clickplanet/clickplanet/internal/model"
)

// Store is the contract the coordinator and query engine depend on.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the current owner of tileID, or ok=false if unowned.
	Get(tileID int32) (model.Ownership, bool, error)
	// Put durably records the ownership and updates any in-memory mirror.
	// Idempotent on (tile_id, country_id, timestamp_ns): replaying the same
	// write during recovery leaves timestamps non-decreasing per tile.
	Put(o model.Ownership) error
	// Scan returns every owned tile in [start, end) in ascending tile_id
	// order. The returned slice is a point-in-time snapshot, not a live
	// cursor.
	Scan(start, end int32) ([]model.Ownership, error)
	// CountByCountry returns the live per-country tile count.
	CountByCountry() map[string]uint32
	// Close releases backing resources.
	Close() error
}

// SQLiteStore is the default Store: modernc.org/sqlite for durability plus
// an xsync.Map mirror for fast point/range reads. The durable table is
// authoritative; the mirror is written only after a successful write.
type SQLiteStore struct {
	db *sql.DB

	mirror *xsync.Map[int32, model.Ownership]
	counts *xsync.Map[string, *atomic.Int64]
}

// Open opens (creating if necessary) the sqlite-backed ownership store at
// path, applies migrations, and rebuilds the in-memory mirror by a full
// table scan before returning. The server must not advertise readiness
// before this completes.
func Open(path string, maxOpenConns int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := migrateDB(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		mirror: xsync.NewMap[int32, model.Ownership](),
		counts: xsync.NewMap[string, *atomic.Int64](),
	}

	if err := s.rebuildMirror(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) rebuildMirror() error {
	rows, err := s.db.Query("SELECT tile_id, country_id, timestamp_ns FROM ownership")
	if err != nil {
		return fmt.Errorf("store: rebuild mirror: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o model.Ownership
		if err := rows.Scan(&o.TileID, &o.CountryID, &o.TimestampNs); err != nil {
			return fmt.Errorf("store: rebuild mirror: scan: %w", err)
		}
		s.mirror.Store(o.TileID, o)
		s.bumpCount(o.CountryID, 1)
	}
	return rows.Err()
}

func (s *SQLiteStore) bumpCount(countryID string, delta int64) {
	if countryID == "" || delta == 0 {
		return
	}
	counter, _ := s.counts.Compute(countryID, func(counter *atomic.Int64, loaded bool) (*atomic.Int64, xsync.ComputeOp) {
		if !loaded {
			counter = new(atomic.Int64)
		}
		return counter, xsync.UpdateOp
	})
	counter.Add(delta)
}

// Get implements Store. Reads are served from the mirror, which is kept
// consistent with the durable table on every Put.
func (s *SQLiteStore) Get(tileID int32) (model.Ownership, bool, error) {
	o, ok := s.mirror.Load(tileID)
	return o, ok, nil
}

const upsertOwnershipSQL = `
INSERT INTO ownership (tile_id, country_id, timestamp_ns)
VALUES (?, ?, ?)
ON CONFLICT(tile_id) DO UPDATE SET
	country_id   = excluded.country_id,
	timestamp_ns = excluded.timestamp_ns
`

// Put implements Store. The durable write happens first; the mirror (and
// live per-country counters) are updated only after it succeeds, so a
// failed write never desynchronizes the mirror from cold storage.
func (s *SQLiteStore) Put(o model.Ownership) error {
	if _, err := s.db.Exec(upsertOwnershipSQL, o.TileID, o.CountryID, o.TimestampNs); err != nil {
		return apierr.New(apierr.StoreUnavailable, fmt.Sprintf("put tile %d: %v", o.TileID, err))
	}

	if prev, had := s.mirror.Load(o.TileID); had && prev.CountryID != "" {
		s.bumpCount(prev.CountryID, -1)
	}
	s.mirror.Store(o.TileID, o)
	s.bumpCount(o.CountryID, 1)

	return nil
}

// Scan implements Store.
func (s *SQLiteStore) Scan(start, end int32) ([]model.Ownership, error) {
	var out []model.Ownership
	s.mirror.Range(func(tileID int32, o model.Ownership) bool {
		if tileID >= start && tileID < end {
			out = append(out, o)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TileID < out[j].TileID })
	return out, nil
}

// CountByCountry implements Store.
func (s *SQLiteStore) CountByCountry() map[string]uint32 {
	out := make(map[string]uint32)
	s.counts.Range(func(countryID string, counter *atomic.Int64) bool {
		if n := counter.Load(); n > 0 {
			out[countryID] = uint32(n)
		}
		return true
	})
	return out
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
