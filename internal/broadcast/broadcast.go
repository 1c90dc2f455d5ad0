// Package broadcast implements the broadcast hub: it maintains the set
// of live listener sessions, subscribes to the event bus, and pushes
// notifications to each session with per-session backpressure. Sessions
// are sharded by a hash of their id so that updates to the session set
// never contend across shards, and each shard is owned by a single pump
// goroutine so per-tile ordering is automatic within its subscription.
package broadcast

import (
	"log"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/model"
)

// Session is a live listener's outbound handle. The hub's pump goroutine
// writes to it and never waits: a full channel causes a drop, not a
// blocking send.
type Session struct {
	ID     string
	Filter bus.Filter

	out     chan model.UpdateNotification
	closeCh chan struct{}
	once    sync.Once
}

// NewSession creates a session with a bounded outbound queue of the given
// capacity (default 256).
func NewSession(id string, filter bus.Filter, capacity int) *Session {
	if capacity <= 0 {
		capacity = 256
	}
	return &Session{
		ID:      id,
		Filter:  filter,
		out:     make(chan model.UpdateNotification, capacity),
		closeCh: make(chan struct{}),
	}
}

// C returns the channel the transport layer drains to push frames to the
// client.
func (s *Session) C() <-chan model.UpdateNotification { return s.out }

// Done is closed when the hub drops this session (backpressure or Detach).
func (s *Session) Done() <-chan struct{} { return s.closeCh }

func (s *Session) close() {
	s.once.Do(func() { close(s.closeCh) })
}

// Hub is the default Broadcast Hub implementation.
type Hub struct {
	shards []*hubShard
}

type hubShard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// Config configures a new Hub.
type Config struct {
	Bus        *bus.Bus
	ShardCount int
}

// New builds a Hub with shardCount independent shards, each fed by its own
// bus.AllTiles subscription and pump goroutine.
func New(cfg Config) *Hub {
	shardCount := cfg.ShardCount
	if shardCount <= 0 {
		shardCount = 16
	}

	h := &Hub{shards: make([]*hubShard, shardCount)}
	for i := range h.shards {
		sh := &hubShard{sessions: make(map[string]*Session)}
		h.shards[i] = sh
		sub := cfg.Bus.Subscribe(bus.AllTiles())
		go sh.pump(sub)
	}
	return h
}

func shardFor(sessionID string, numShards int) int {
	return int(xxh3.HashString(sessionID) % uint64(numShards))
}

// Attach registers session and starts delivering notifications to it from
// now on; there is no historical replay. Clients bootstrap via the
// snapshot endpoints.
func (h *Hub) Attach(session *Session) {
	sh := h.shards[shardFor(session.ID, len(h.shards))]
	sh.mu.Lock()
	sh.sessions[session.ID] = session
	sh.mu.Unlock()
}

// Detach removes session and releases its channel.
func (h *Hub) Detach(session *Session) {
	sh := h.shards[shardFor(session.ID, len(h.shards))]
	sh.mu.Lock()
	delete(sh.sessions, session.ID)
	sh.mu.Unlock()
	session.close()
}

// pump runs for the lifetime of the hub, forwarding every notification
// from sub to every matching session in this shard. A session whose
// outbound channel is full is dropped: a slow client must not slow any
// other client, and buffering without bound is not an option.
func (sh *hubShard) pump(sub *bus.Subscription) {
	for n := range sub.C() {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if !s.Filter.Matches(n.TileID) {
				continue
			}
			select {
			case s.out <- n:
			default:
				log.Printf("[broadcast] session %s backpressure, dropping", id)
				delete(sh.sessions, id)
				s.close()
			}
		}
		sh.mu.Unlock()
	}
}
