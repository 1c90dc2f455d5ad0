// Command robot is the safeguard-robot CLI collaborator: it subscribes
// to a running server's /ws/listen stream and issues
// compensating /api/click requests to re-claim a target country's tiles
// for a wanted country, continuously generating adversarial write and
// read load against the core.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/clickplanet/clickplanet/internal/config"
	"github.com/clickplanet/clickplanet/internal/robot"
	"github.com/clickplanet/clickplanet/internal/robotclient"
)

func main() {
	targetCountry := flag.String("target-country", "", "country whose tiles the robot watches (required)")
	wantedCountry := flag.String("wanted-country", "", "country the robot reclaims tiles for (required)")
	port := flag.Int("port", 8080, "server port")
	host := flag.String("host", "127.0.0.1", "server host")
	unsecure := flag.Bool("unsecure", false, "use http/ws instead of https/wss")
	tilesFile := flag.String("tiles-file", "", "optional country_to_tiles.json path scoping target-country's tiles")
	configFile := flag.String("config", "", "optional YAML file for pacing/fixture overrides")
	flag.Parse()

	if *targetCountry == "" || *wantedCountry == "" {
		log.Fatal("robot: --target-country and --wanted-country are required")
	}
	target := strings.ToLower(*targetCountry)
	wanted := strings.ToLower(*wantedCountry)
	if !config.IsLowerAlpha2(target) || !config.IsLowerAlpha2(wanted) {
		log.Fatal("robot: country codes must be 2-letter ISO-3166 alpha-2")
	}

	fileCfg, err := robot.LoadFileConfig(*configFile)
	if err != nil {
		log.Fatalf("robot: %v", err)
	}
	effectiveTilesFile := *tilesFile
	if effectiveTilesFile == "" {
		effectiveTilesFile = fileCfg.TilesFile
	}

	targetTiles, err := robot.LoadTargetTiles(effectiveTilesFile, target)
	if err != nil {
		log.Fatalf("robot: %v", err)
	}

	client := robotclient.New(*host, *port, *unsecure)
	r, err := robot.New(robot.Config{
		Client:          client,
		TargetCountry:   target,
		WantedCountry:   wanted,
		TargetTiles:     targetTiles,
		ReclickCooldown: fileCfg.Cooldown(),
	})
	if err != nil {
		log.Fatalf("robot: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("robot: watching %s:%d for %s tiles, reclaiming for %s", *host, *port, target, wanted)
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("robot: %v", err)
	}
}
