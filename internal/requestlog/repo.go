package requestlog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/clickplanet/clickplanet/internal/model"
)

// Entry is one audit-log row: a model.Click plus the previous owner, so
// the log reads like the update stream it mirrors.
type Entry struct {
	ClickID           string
	TileID            int32
	CountryID         string
	PreviousCountryID string
	TimestampNs       uint64
}

// Repo manages the click-log SQLite database.
type Repo struct {
	db *sql.DB
}

// NewRepo opens (creating if necessary) the click-log database at path
// and applies its schema.
func NewRepo(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("requestlog: open %s: %w", path, err)
	}
	if _, err := db.Exec(createDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("requestlog: create schema: %w", err)
	}
	return &Repo{db: db}, nil
}

const insertSQL = `
INSERT INTO click_log (click_id, tile_id, country_id, previous_country_id, timestamp_ns)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(click_id) DO NOTHING
`

// InsertBatch writes entries in a single transaction and returns how many
// rows were newly inserted.
func (r *Repo) InsertBatch(entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("requestlog: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("requestlog: prepare: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, e := range entries {
		res, err := stmt.Exec(e.ClickID, e.TileID, e.CountryID, e.PreviousCountryID, e.TimestampNs)
		if err != nil {
			return n, fmt.Errorf("requestlog: insert %s: %w", e.ClickID, err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("requestlog: commit: %w", err)
	}
	return n, nil
}

// RecentByTile returns up to limit most recent log rows for tileID, newest
// first. Used only for operational debugging, never by a game-facing
// operation.
func (r *Repo) RecentByTile(tileID int32, limit int) ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT click_id, tile_id, country_id, previous_country_id, timestamp_ns
		 FROM click_log WHERE tile_id = ? ORDER BY timestamp_ns DESC LIMIT ?`,
		tileID, limit)
	if err != nil {
		return nil, fmt.Errorf("requestlog: query tile %d: %w", tileID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ClickID, &e.TileID, &e.CountryID, &e.PreviousCountryID, &e.TimestampNs); err != nil {
			return nil, fmt.Errorf("requestlog: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the backing database handle.
func (r *Repo) Close() error {
	return r.db.Close()
}

// FromNotification builds an Entry from a coordinator click outcome,
// mirroring the shape of model.UpdateNotification plus the click's
// server-assigned id/timestamp.
func FromNotification(n model.UpdateNotification, clickID string, timestampNs uint64) Entry {
	return Entry{
		ClickID:           clickID,
		TileID:            n.TileID,
		CountryID:         n.CountryID,
		PreviousCountryID: n.PreviousCountryID,
		TimestampNs:       timestampNs,
	}
}
