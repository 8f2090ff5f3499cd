// Command navprofile is the thin CLI dispatcher for the core airspace
// analysis pipeline: run an AIXM import, serve the HTTP query/analysis
// API, or analyze/correct a route from the shell. It is deliberately
// minimal — the desktop GUI and full interactive dispatcher are out of
// scope (spec.md §1); this just wires the core onto a command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/navprofile/navprofile/internal/aixm"
	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/analyzer"
	"github.com/navprofile/navprofile/internal/api"
	"github.com/navprofile/navprofile/internal/bus"
	"github.com/navprofile/navprofile/internal/config"
	"github.com/navprofile/navprofile/internal/kml"
	"github.com/navprofile/navprofile/internal/profile"
	"github.com/navprofile/navprofile/internal/query"
	"github.com/navprofile/navprofile/internal/store"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "navprofile - commands:")
	fmt.Fprintln(w, "  import           - stream an AIXM 4.5 document into the Airspace Store")
	fmt.Fprintln(w, "  serve            - run the HTTP query/analysis API (and, if enabled, the NATS bus)")
	fmt.Fprintln(w, "  analyze          - run the Crossing Analyzer over a KML route/trace")
	fmt.Fprintln(w, "  correct-profile  - run the Profile Corrector over a KML route")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  navprofile import -config navprofile.yaml -source aixm.xml")
	fmt.Fprintln(w, "  navprofile serve -config navprofile.yaml")
	fmt.Fprintln(w, "  navprofile analyze -config navprofile.yaml -route route.kml")
	fmt.Fprintln(w, "  navprofile correct-profile -config navprofile.yaml -route route.kml -dep-elev 300 -dest-elev 50")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "correct-profile":
		err = runCorrectProfile(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "navprofile: unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "navprofile: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(fs *flag.FlagSet) (config.Config, error) {
	path := fs.Lookup("config").Value.String()
	return config.Load(path)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	return store.Open(ctx, cfg.Store.ToStoreConfig())
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.String("config", "", "path to a navprofile YAML config file")
	source := fs.String("source", "", "path to the AIXM 4.5 XML (or .gz) source document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *source == "" {
		return fmt.Errorf("import: -source is required")
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	imp := aixm.NewImporter(st)
	stats, err := imp.Import(ctx, *source)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("airspaces=%d (skipped %d) borders=%d vertices=%d (skipped %d)\n",
		stats.AirspacesImported, stats.AirspacesSkipped, stats.BordersImported,
		stats.VerticesImported, stats.VerticesSkipped)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.String("config", "", "path to a navprofile YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	engine, err := query.Build(ctx, st)
	if err != nil {
		return fmt.Errorf("build query engine: %w", err)
	}

	if cfg.Bus.Enabled {
		b, err := bus.Connect(cfg.Bus.URL)
		if err != nil {
			return fmt.Errorf("connect bus: %w", err)
		}
		defer b.Close()

		analyzeCfg := analyzer.Config{
			CorridorHeightFt: cfg.CorridorHeightFt,
			CorridorWidthKm:  cfg.CorridorWidthNM * 1.852,
			SampleDistanceKm: cfg.SampleDistanceKm,
		}
		analyzeFn := func(route *airspace.FlightRoute) []airspace.Crossing {
			return analyzer.Analyze(engine, route, analyzeCfg)
		}
		if _, err := b.Subscribe(analyzeFn); err != nil {
			return fmt.Errorf("subscribe bus: %w", err)
		}
	}

	srv := api.NewServer(engine, st, api.Config{
		Port:        cfg.API.Port,
		AuthEnabled: cfg.API.AuthEnabled,
		APIKeys:     cfg.API.APIKeys,
	})
	fmt.Printf("navprofile: serving on :%d\n", cfg.API.Port)
	return srv.Run()
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	fs.String("config", "", "path to a navprofile YAML config file")
	routePath := fs.String("route", "", "path to a KML route/trace")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *routePath == "" {
		return fmt.Errorf("analyze: -route is required")
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}

	f, err := os.Open(*routePath)
	if err != nil {
		return fmt.Errorf("open route: %w", err)
	}
	defer f.Close()

	route, err := kml.Parse(f)
	if err != nil {
		return fmt.Errorf("parse route: %w", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	engine, err := query.Build(ctx, st)
	if err != nil {
		return fmt.Errorf("build query engine: %w", err)
	}

	acfg := analyzer.Config{
		CorridorHeightFt: cfg.CorridorHeightFt,
		CorridorWidthKm:  cfg.CorridorWidthNM * 1.852,
		SampleDistanceKm: cfg.SampleDistanceKm,
	}
	crossings := analyzer.Analyze(engine, route, acfg)

	return json.NewEncoder(os.Stdout).Encode(crossings)
}

func runCorrectProfile(args []string) error {
	fs := flag.NewFlagSet("correct-profile", flag.ExitOnError)
	fs.String("config", "", "path to a navprofile YAML config file")
	routePath := fs.String("route", "", "path to a KML route")
	depElev := fs.Float64("dep-elev", 0, "departure field elevation, feet")
	destElev := fs.Float64("dest-elev", 0, "destination field elevation, feet")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *routePath == "" {
		return fmt.Errorf("correct-profile: -route is required")
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}

	f, err := os.Open(*routePath)
	if err != nil {
		return fmt.Errorf("open route: %w", err)
	}
	defer f.Close()

	route, err := kml.Parse(f)
	if err != nil {
		return fmt.Errorf("parse route: %w", err)
	}

	pcfg := profile.Config{
		ClimbRateFpm:   cfg.ClimbRateFpm,
		DescentRateFpm: cfg.DescentRateFpm,
		GroundSpeedKts: cfg.GroundSpeedKts,
	}
	corrected, warnings := profile.Correct(route, *depElev, *destElev, pcfg, nil)

	out := struct {
		Waypoints []struct {
			Name       string  `json:"name"`
			Lon        float64 `json:"lon"`
			Lat        float64 `json:"lat"`
			AltitudeFt float64 `json:"altitude_ft"`
		} `json:"waypoints"`
		Warnings []string `json:"warnings"`
	}{}
	for _, wp := range corrected {
		out.Waypoints = append(out.Waypoints, struct {
			Name       string  `json:"name"`
			Lon        float64 `json:"lon"`
			Lat        float64 `json:"lat"`
			AltitudeFt float64 `json:"altitude_ft"`
		}{wp.Name, wp.Lon, wp.Lat, wp.AltitudeFt})
	}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, w.String())
	}

	return json.NewEncoder(os.Stdout).Encode(out)
}
