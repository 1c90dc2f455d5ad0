// Package bus implements the in-process event bus: an ordered-per-tile
// publish/subscribe substrate. Subjects are sharded by a hash of the
// per-tile subject name ("clicks.tile.<tile_id>"), so delivery order is
// preserved within a shard and cross-tile ordering is never promised.
package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/maypok86/otter"
	"github.com/zeebo/xxh3"

	"github.com/clickplanet/clickplanet/internal/model"
)

// Envelope wraps an UpdateNotification with a dedup key for at-least-once
// publish tolerance. Callers pass the click_id that produced the
// notification; re-publishing the same click_id is suppressed.
type Envelope struct {
	Notification model.UpdateNotification
	DedupKey     string
}

// Filter selects which tiles a subscription observes. The zero value is
// not valid; use AllTiles() or TileSet().
type Filter struct {
	all   bool
	tiles map[int32]struct{}
}

// AllTiles returns a filter matching every tile (the fan-in "clicks.all"
// subject).
func AllTiles() Filter { return Filter{all: true} }

// TileSet returns a filter matching only the given tile ids.
func TileSet(tileIDs ...int32) Filter {
	m := make(map[int32]struct{}, len(tileIDs))
	for _, t := range tileIDs {
		m[t] = struct{}{}
	}
	return Filter{tiles: m}
}

// Matches reports whether the filter selects tileID.
func (f Filter) Matches(tileID int32) bool {
	if f.all {
		return true
	}
	_, ok := f.tiles[tileID]
	return ok
}

// Subscription is a live subscriber handle. C() yields notifications in
// per-tile FIFO order for as long as the subscription is attached;
// Unsubscribe releases it. A subscription that cannot keep up is the
// caller's concern: the bus never blocks a publisher on a slow
// subscriber.
type Subscription struct {
	id     uint64
	filter Filter
	ch     chan model.UpdateNotification
	bus    *Bus
	shards []int
}

// C returns the notification channel for this subscription.
func (s *Subscription) C() <-chan model.UpdateNotification { return s.ch }

// Unsubscribe detaches the subscription from every shard it was on.
func (s *Subscription) Unsubscribe() {
	for _, shardIdx := range s.shards {
		s.bus.shards[shardIdx].remove(s.id)
	}
}

type shard struct {
	mu   sync.Mutex
	subs map[uint64]*Subscription
}

func (sh *shard) add(sub *Subscription) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.subs[sub.id] = sub
}

func (sh *shard) remove(id uint64) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.subs, id)
}

// publish delivers n to every matching subscriber on this shard without
// blocking: a subscriber whose channel is full is skipped for this
// notification (the broadcast hub above is responsible for detecting and
// dropping chronically slow sessions; the bus itself only protects the
// publisher's hot path).
func (sh *shard) publish(n model.UpdateNotification) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for _, sub := range sh.subs {
		if !sub.filter.Matches(n.TileID) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
		}
	}
}

// Bus is the default in-process Event Bus implementation.
type Bus struct {
	shards  []*shard
	nextID  uint64
	idMu    sync.Mutex
	dedup   otter.Cache[string, struct{}]
	chanCap int
}

// Config configures a new Bus.
type Config struct {
	ShardCount      int
	ChannelCapacity int
	DedupCapacity   int
	DedupTTL        time.Duration // default one minute
}

// New creates a Bus with the given shard count.
func New(cfg Config) (*Bus, error) {
	shardCount := cfg.ShardCount
	if shardCount <= 0 {
		shardCount = 16
	}
	chanCap := cfg.ChannelCapacity
	if chanCap <= 0 {
		chanCap = 256
	}
	dedupCap := cfg.DedupCapacity
	if dedupCap <= 0 {
		dedupCap = 65536
	}
	dedupTTL := cfg.DedupTTL
	if dedupTTL <= 0 {
		dedupTTL = time.Minute
	}

	dedup, err := otter.MustBuilder[string, struct{}](dedupCap).
		Cost(func(_ string, _ struct{}) uint32 { return 1 }).
		WithTTL(dedupTTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("bus: build dedup cache: %w", err)
	}

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{subs: make(map[uint64]*Subscription)}
	}

	return &Bus{shards: shards, dedup: dedup, chanCap: chanCap}, nil
}

func subjectShard(tileID int32, numShards int) int {
	subject := fmt.Sprintf("clicks.tile.%d", tileID)
	return int(xxh3.HashString(subject) % uint64(numShards))
}

// Publish fans the notification out to the matching subscribers.
// At-least-once: republishing the same DedupKey is a no-op. Never blocks
// on a slow subscriber.
func (b *Bus) Publish(env Envelope) error {
	if env.DedupKey != "" {
		if _, found := b.dedup.Get(env.DedupKey); found {
			return nil
		}
		b.dedup.Set(env.DedupKey, struct{}{})
	}

	idx := subjectShard(env.Notification.TileID, len(b.shards))
	b.shards[idx].publish(env.Notification)
	return nil
}

// Subscribe attaches a new subscriber. The subscription lives only as
// long as the subscriber holds it; nothing is replayed after attach.
func (b *Bus) Subscribe(filter Filter) *Subscription {
	b.idMu.Lock()
	b.nextID++
	id := b.nextID
	b.idMu.Unlock()

	sub := &Subscription{
		id:     id,
		filter: filter,
		ch:     make(chan model.UpdateNotification, b.chanCap),
		bus:    b,
	}

	for i, sh := range b.shards {
		sh.add(sub)
		sub.shards = append(sub.shards, i)
	}

	return sub
}
