package robot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTargetTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "country_to_tiles.json")
	data, err := json.Marshal(map[string][]int32{"fr": {1, 2, 3}, "de": {4, 5}})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tiles, err := LoadTargetTiles(path, "fr")
	if err != nil {
		t.Fatalf("LoadTargetTiles: %v", err)
	}
	if len(tiles) != 3 || !tiles[1] || !tiles[2] || !tiles[3] {
		t.Fatalf("unexpected tile set: %+v", tiles)
	}
}

func TestLoadTargetTiles_EmptyPath(t *testing.T) {
	tiles, err := LoadTargetTiles("", "fr")
	if err != nil {
		t.Fatalf("LoadTargetTiles: %v", err)
	}
	if tiles != nil {
		t.Fatalf("expected nil tile set for empty path, got %+v", tiles)
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yaml")
	if err := os.WriteFile(path, []byte("reclick_cooldown: 3s\ntiles_file: /tmp/country_to_tiles.json\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if cfg.Cooldown().Seconds() != 3 {
		t.Fatalf("Cooldown() = %v, want 3s", cfg.Cooldown())
	}
	if cfg.TilesFile != "/tmp/country_to_tiles.json" {
		t.Fatalf("TilesFile = %q", cfg.TilesFile)
	}
}
