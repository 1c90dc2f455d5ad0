package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadTargetTiles reads a country_to_tiles.json-shaped file (one of the
// static geographic datasets supplied to the robot) and returns the tile
// set owned by countryID. An empty path is not an error: callers fall
// back to "every tile is in scope."
func LoadTargetTiles(path, countryID string) (map[int32]bool, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("robot: read tiles file %s: %w", path, err)
	}

	var byCountry map[string][]int32
	if err := json.Unmarshal(raw, &byCountry); err != nil {
		return nil, fmt.Errorf("robot: parse tiles file %s: %w", path, err)
	}

	tiles := byCountry[countryID]
	out := make(map[int32]bool, len(tiles))
	for _, t := range tiles {
		out[t] = true
	}
	return out, nil
}

// FileConfig is the robot's optional YAML config file, letting operators
// pin pacing without a long flag list. Flags remain authoritative.
type FileConfig struct {
	ReclickCooldown string `yaml:"reclick_cooldown"`
	TilesFile       string `yaml:"tiles_file"`
}

// Cooldown parses ReclickCooldown as a Go duration string (e.g. "3s"),
// returning zero if unset or malformed.
func (c FileConfig) Cooldown() time.Duration {
	d, _ := time.ParseDuration(c.ReclickCooldown)
	return d
}

// LoadFileConfig reads path as YAML. An empty path is not an error.
func LoadFileConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("robot: read config %s: %w", path, err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("robot: parse config %s: %w", path, err)
	}
	return cfg, nil
}
