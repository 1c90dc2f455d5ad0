package broadcast

import (
	"testing"
	"time"

	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/model"
)

func TestHub_DeliversInOrder(t *testing.T) {
	b, err := bus.New(bus.Config{ShardCount: 1})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	h := New(Config{Bus: b, ShardCount: 1})

	s := NewSession("s1", bus.AllTiles(), 16)
	h.Attach(s)
	defer h.Detach(s)

	if err := b.Publish(bus.Envelope{Notification: model.UpdateNotification{TileID: 42, CountryID: "ru"}, DedupKey: "a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := b.Publish(bus.Envelope{Notification: model.UpdateNotification{TileID: 42, CountryID: "fr", PreviousCountryID: "ru"}, DedupKey: "b"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case n := <-s.C():
		if n.CountryID != "ru" {
			t.Fatalf("expected ru first, got %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first notification")
	}
	select {
	case n := <-s.C():
		if n.CountryID != "fr" || n.PreviousCountryID != "ru" {
			t.Fatalf("expected fr/ru second, got %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second notification")
	}
}

func TestHub_DropsSlowSession(t *testing.T) {
	b, err := bus.New(bus.Config{ShardCount: 1})
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	h := New(Config{Bus: b, ShardCount: 1})

	s := NewSession("slow", bus.AllTiles(), 4)
	h.Attach(s)

	for i := int32(0); i < 256; i++ {
		if err := b.Publish(bus.Envelope{Notification: model.UpdateNotification{TileID: i, CountryID: "fr"}, DedupKey: ""}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("expected slow session to be dropped")
	}
}
