package coordinator

import (
	"testing"

	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/model"
)

type memStore struct {
	rows map[int32]model.Ownership
}

func newMemStore() *memStore { return &memStore{rows: make(map[int32]model.Ownership)} }

func (m *memStore) Get(tileID int32) (model.Ownership, bool, error) {
	o, ok := m.rows[tileID]
	return o, ok, nil
}

func (m *memStore) Put(o model.Ownership) error {
	m.rows[o.TileID] = o
	return nil
}

func (m *memStore) Scan(start, end int32) ([]model.Ownership, error) {
	var out []model.Ownership
	for id, o := range m.rows {
		if id >= start && id < end {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) CountByCountry() map[string]uint32 {
	out := make(map[string]uint32)
	for _, o := range m.rows {
		out[o.CountryID]++
	}
	return out
}

func (m *memStore) Close() error { return nil }

func newTestCoordinator(t *testing.T) (*Coordinator, *memStore, *bus.Bus) {
	t.Helper()
	b, err := bus.New(bus.Config{})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	s := newMemStore()
	var tick uint64
	c := New(Config{
		Store: s, Bus: b, MaxTile: model.MaxTile,
		Now: func() uint64 { tick++; return tick },
	})
	return c, s, b
}

func TestClick_FreshClaim(t *testing.T) {
	c, s, _ := newTestCoordinator(t)

	resp, err := c.Click(model.ClickRequest{TileID: 1337, CountryID: "fr"})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if resp.ClickID == "" {
		t.Fatal("expected non-empty click_id")
	}

	o, ok, _ := s.Get(1337)
	if !ok || o.CountryID != "fr" || o.TimestampNs != resp.TimestampNs {
		t.Fatalf("store not updated: %+v ok=%v", o, ok)
	}
}

func TestClick_NoOpSuppressed(t *testing.T) {
	c, _, b := newTestCoordinator(t)
	sub := b.Subscribe(bus.AllTiles())
	defer sub.Unsubscribe()

	if _, err := c.Click(model.ClickRequest{TileID: 7, CountryID: "fr"}); err != nil {
		t.Fatalf("Click: %v", err)
	}
	<-sub.C()

	resp, err := c.Click(model.ClickRequest{TileID: 7, CountryID: "fr"})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if resp.ClickID != "" {
		t.Fatalf("expected empty click_id for no-op, got %q", resp.ClickID)
	}

	select {
	case n := <-sub.C():
		t.Fatalf("expected no notification for no-op click, got %+v", n)
	default:
	}
}

func TestClick_OverwritePublishesPreviousOwner(t *testing.T) {
	c, _, b := newTestCoordinator(t)
	sub := b.Subscribe(bus.AllTiles())
	defer sub.Unsubscribe()

	if _, err := c.Click(model.ClickRequest{TileID: 42, CountryID: "ru"}); err != nil {
		t.Fatalf("Click: %v", err)
	}
	n1 := <-sub.C()
	if n1.CountryID != "ru" || n1.PreviousCountryID != "" {
		t.Fatalf("unexpected first notification: %+v", n1)
	}

	if _, err := c.Click(model.ClickRequest{TileID: 42, CountryID: "fr"}); err != nil {
		t.Fatalf("Click: %v", err)
	}
	n2 := <-sub.C()
	if n2.CountryID != "fr" || n2.PreviousCountryID != "ru" {
		t.Fatalf("unexpected second notification: %+v", n2)
	}
}

func TestClick_OnCommitFiresWithPreviousOwner(t *testing.T) {
	b, err := bus.New(bus.Config{})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	s := newMemStore()
	var commits []string
	c := New(Config{
		Store: s, Bus: b, MaxTile: model.MaxTile,
		OnCommit: func(prevCountryID string, o model.Ownership, clickID string) {
			commits = append(commits, prevCountryID+">"+o.CountryID)
		},
	})

	if _, err := c.Click(model.ClickRequest{TileID: 9, CountryID: "ru"}); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if _, err := c.Click(model.ClickRequest{TileID: 9, CountryID: "fr"}); err != nil {
		t.Fatalf("Click: %v", err)
	}
	// The no-op re-click must not fire OnCommit.
	if _, err := c.Click(model.ClickRequest{TileID: 9, CountryID: "fr"}); err != nil {
		t.Fatalf("Click: %v", err)
	}

	if len(commits) != 2 || commits[0] != ">ru" || commits[1] != "ru>fr" {
		t.Fatalf("unexpected commit sequence: %+v", commits)
	}
}

func TestClick_NormalizesCountryCase(t *testing.T) {
	c, s, _ := newTestCoordinator(t)

	if _, err := c.Click(model.ClickRequest{TileID: 3, CountryID: "FR"}); err != nil {
		t.Fatalf("Click: %v", err)
	}
	o, ok, _ := s.Get(3)
	if !ok || o.CountryID != "fr" {
		t.Fatalf("expected uppercase code stored lowercase, got %+v ok=%v", o, ok)
	}

	// A re-click with different casing is the same owner, so a no-op.
	resp, err := c.Click(model.ClickRequest{TileID: 3, CountryID: "Fr"})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if resp.ClickID != "" {
		t.Fatalf("expected no-op for re-click differing only in case, got click_id %q", resp.ClickID)
	}
}

func TestClick_TimestampsStrictlyIncreasePerTile(t *testing.T) {
	b, err := bus.New(bus.Config{})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	s := newMemStore()
	// A clock stuck at 100 models regression: without the clamp, the
	// second write would reuse the first write's timestamp.
	c := New(Config{
		Store: s, Bus: b, MaxTile: model.MaxTile,
		Now: func() uint64 { return 100 },
	})

	r1, err := c.Click(model.ClickRequest{TileID: 8, CountryID: "fr"})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	r2, err := c.Click(model.ClickRequest{TileID: 8, CountryID: "ru"})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	r3, err := c.Click(model.ClickRequest{TileID: 8, CountryID: "be"})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}

	if !(r1.TimestampNs < r2.TimestampNs && r2.TimestampNs < r3.TimestampNs) {
		t.Fatalf("timestamps not strictly increasing: %d, %d, %d",
			r1.TimestampNs, r2.TimestampNs, r3.TimestampNs)
	}
	if r2.TimestampNs != r1.TimestampNs+1 {
		t.Fatalf("expected regressed clock clamped to prev+1, got %d after %d",
			r2.TimestampNs, r1.TimestampNs)
	}
}

func TestClick_InvalidArgument(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if _, err := c.Click(model.ClickRequest{TileID: -1, CountryID: "fr"}); err == nil {
		t.Fatal("expected error for negative tile_id")
	}
	if _, err := c.Click(model.ClickRequest{TileID: 0, CountryID: "FRA"}); err == nil {
		t.Fatal("expected error for malformed country code")
	}
	if _, err := c.Click(model.ClickRequest{TileID: 0, CountryID: "f1"}); err == nil {
		t.Fatal("expected error for non-alphabetic country code")
	}
}
