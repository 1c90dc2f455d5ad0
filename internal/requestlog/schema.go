// Package requestlog implements an asynchronous, batched audit log of
// accepted clicks. No user identity is recorded, only tile, country, and
// timestamp facts already exposed via the broadcast stream.
package requestlog

// createDDL defines the schema for the click audit log database.
const createDDL = `
CREATE TABLE IF NOT EXISTS click_log (
	click_id            TEXT PRIMARY KEY,
	tile_id             INTEGER NOT NULL,
	country_id          TEXT NOT NULL,
	previous_country_id TEXT NOT NULL DEFAULT '',
	timestamp_ns        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_click_log_tile_id ON click_log(tile_id);
CREATE INDEX IF NOT EXISTS idx_click_log_ts_ns    ON click_log(timestamp_ns);
`
