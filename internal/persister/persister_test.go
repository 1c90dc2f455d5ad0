package persister

import (
	"sync"
	"testing"
	"time"

	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/coordinator"
	"github.com/clickplanet/clickplanet/internal/model"
)

type memStore struct {
	mu   sync.Mutex
	rows map[int32]model.Ownership
}

func newMemStore() *memStore { return &memStore{rows: make(map[int32]model.Ownership)} }

func (m *memStore) Get(tileID int32) (model.Ownership, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[tileID]
	return o, ok, nil
}

func (m *memStore) Put(o model.Ownership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[o.TileID] = o
	return nil
}

func (m *memStore) Scan(start, end int32) ([]model.Ownership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ownership
	for id, o := range m.rows {
		if id >= start && id < end {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) CountByCountry() map[string]uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint32)
	for _, o := range m.rows {
		out[o.CountryID]++
	}
	return out
}

func (m *memStore) Close() error { return nil }

func TestWorker_DrainsNotificationsIntoStore(t *testing.T) {
	b, err := bus.New(bus.Config{})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	s := newMemStore()
	w := New(Config{Store: s, Bus: b, MaxTile: model.MaxTile})
	w.Start()
	defer w.Stop()

	if err := b.Publish(bus.Envelope{Notification: model.UpdateNotification{TileID: 99, CountryID: "fr"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if o, ok, _ := s.Get(99); ok && o.CountryID == "fr" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected worker to drain notification into store")
}

func TestApply_PreservesMatchingOwnership(t *testing.T) {
	b, err := bus.New(bus.Config{})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	s := newMemStore()
	if err := s.Put(model.Ownership{TileID: 5, CountryID: "fr", TimestampNs: 123}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	w := New(Config{Store: s, Bus: b, MaxTile: model.MaxTile})

	w.apply(model.UpdateNotification{TileID: 5, CountryID: "fr"})

	o, ok, _ := s.Get(5)
	if !ok || o.TimestampNs != 123 {
		t.Fatalf("expected matching ownership to be left untouched, got %+v ok=%v", o, ok)
	}
}

func TestApply_KeepsTimestampsIncreasingOnDisagreement(t *testing.T) {
	b, err := bus.New(bus.Config{})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	s := newMemStore()
	future := uint64(time.Now().Add(time.Hour).UnixNano())
	if err := s.Put(model.Ownership{TileID: 5, CountryID: "fr", TimestampNs: future}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	w := New(Config{Store: s, Bus: b, MaxTile: model.MaxTile})

	w.apply(model.UpdateNotification{TileID: 5, CountryID: "ru", PreviousCountryID: "fr"})

	o, ok, _ := s.Get(5)
	if !ok || o.CountryID != "ru" {
		t.Fatalf("expected disagreeing notification to be applied, got %+v ok=%v", o, ok)
	}
	if o.TimestampNs != future+1 {
		t.Fatalf("expected timestamp clamped to prev+1, got %d (prev %d)", o.TimestampNs, future)
	}
}

func TestWorker_DoesNotClobberCoordinatorWrite(t *testing.T) {
	b, err := bus.New(bus.Config{})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	s := newMemStore()
	w := New(Config{Store: s, Bus: b, MaxTile: model.MaxTile})
	w.Start()
	defer w.Stop()

	c := coordinator.New(coordinator.Config{Store: s, Bus: b, MaxTile: model.MaxTile})
	resp, err := c.Click(model.ClickRequest{TileID: 1337, CountryID: "fr"})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}

	// Give the drain time to see the notification; the store already
	// agrees on the owner, so the coordinator's timestamp must survive.
	time.Sleep(100 * time.Millisecond)

	o, ok, _ := s.Get(1337)
	if !ok || o.CountryID != "fr" {
		t.Fatalf("unexpected ownership: %+v ok=%v", o, ok)
	}
	if o.TimestampNs != resp.TimestampNs {
		t.Fatalf("coordinator timestamp %d clobbered by persister: store has %d", resp.TimestampNs, o.TimestampNs)
	}
}
