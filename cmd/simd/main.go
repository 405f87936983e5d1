// Command simd runs the traffic simulation engine as a long-running HTTP
// server: load a map, then drive it through spawn/tick/block/... commands
// over REST, with a websocket feed for live state (spec §6).
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/urbanflow-sim/traffic-engine/internal/httpapi"
	"github.com/urbanflow-sim/traffic-engine/internal/mapstore"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
	"github.com/urbanflow-sim/traffic-engine/internal/simulation"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		configPath = flag.String("config", "", "path to a config JSON file overlaying the defaults")
		seed       = flag.Int64("seed", 0, "random seed override (0 keeps the config/default seed)")
		mapPath    = flag.String("map", "", "path to a map JSON file, registered as the initial map")
		mapID      = flag.String("map-id", "default", "id to register and load the --map file under")
	)
	flag.Parse()

	cfg := simconfig.Default()
	if *configPath != "" {
		loaded, err := simconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "simd: loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	store := mapstore.New()
	if *mapPath != "" {
		if err := store.LoadFile(*mapID, *mapPath); err != nil {
			fmt.Fprintf(os.Stderr, "simd: loading map: %v\n", err)
			os.Exit(1)
		}
	}

	logger := log.New(os.Stdout, "simd: ", log.LstdFlags)
	sim := simulation.New(store, cfg, logger)
	if *mapPath != "" {
		if err := sim.LoadMap(*mapID); err != nil {
			fmt.Fprintf(os.Stderr, "simd: activating map %q: %v\n", *mapID, err)
			os.Exit(1)
		}
	}

	server := httpapi.New(sim, logger)
	logger.Printf("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, server.Routes()); err != nil {
		fmt.Fprintf(os.Stderr, "simd: %v\n", err)
		os.Exit(1)
	}
}
