package clickpb

import (
	"testing"

	"github.com/clickplanet/clickplanet/internal/model"
)

func TestClickRequestRoundTrip(t *testing.T) {
	cases := []model.ClickRequest{
		{TileID: 1337, CountryID: "fr"},
		{TileID: -1, CountryID: "fr"},
		{TileID: 0, CountryID: ""},
	}
	for _, c := range cases {
		buf := MarshalClickRequest(c)
		got, err := UnmarshalClickRequest(buf)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != c {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
		}
	}
}

func TestClickResponseRoundTrip(t *testing.T) {
	r := model.ClickResponse{TimestampNs: 1234567890, ClickID: "abc-def"}
	got, err := UnmarshalClickResponse(MarshalClickResponse(r))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestOwnershipStateRoundTrip(t *testing.T) {
	in := []model.Ownership{
		{TileID: 1, CountryID: "fr", TimestampNs: 10},
		{TileID: 2, CountryID: "ru", TimestampNs: 20},
		{TileID: 99999, CountryID: "us", TimestampNs: 30},
	}
	buf := MarshalOwnershipState(in)
	out, err := UnmarshalOwnershipState(buf)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d mismatch: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestUpdateNotificationRoundTrip(t *testing.T) {
	n := model.UpdateNotification{TileID: 42, CountryID: "fr", PreviousCountryID: "ru"}
	got, err := UnmarshalUpdateNotification(MarshalUpdateNotification(n))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != n {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, n)
	}

	// Empty previous_country_id (fresh claim) must round-trip as "".
	n2 := model.UpdateNotification{TileID: 1, CountryID: "fr"}
	got2, err := UnmarshalUpdateNotification(MarshalUpdateNotification(n2))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got2.PreviousCountryID != "" {
		t.Fatalf("expected empty previous_country_id, got %q", got2.PreviousCountryID)
	}
}

func TestLeaderboardResponseRoundTrip(t *testing.T) {
	in := []model.LeaderboardEntry{
		{CountryID: "fr", Score: 100},
		{CountryID: "ru", Score: 50},
	}
	out, err := UnmarshalLeaderboardResponse(MarshalLeaderboardResponse(in))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d mismatch: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestBatchRequestRoundTrip(t *testing.T) {
	r := model.BatchRequest{StartTileID: 0, EndTileID: 1_000_000}
	got, err := UnmarshalBatchRequest(MarshalBatchRequest(r))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}
