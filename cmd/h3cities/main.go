// Command h3cities writes the H3 cells covering a place as a GeoJSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/h3-cities/internal/app"
	"github.com/mohammed-shakir/h3-cities/internal/cityhex"
	"github.com/mohammed-shakir/h3-cities/internal/core/config"
	"github.com/mohammed-shakir/h3-cities/internal/export"
	"github.com/mohammed-shakir/h3-cities/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("h3cities", flag.ContinueOnError)
	place := fs.String("place", "Paris, France", "place name to geocode")
	rawRes := fs.String("res", fmt.Sprint(cfg.H3Res), "H3 resolution (0-15)")
	out := fs.String("out", "", "output path (default <place>_resolution_<res>.geojson)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	res, err := cityhex.ParseResolution(*rawRes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// the CLI always talks to the geocoder directly
	cfg.Cache.Enabled = false
	cfg.Events.Enabled = false

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "cli"}, os.Stderr)
	log := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "err", err)
		return 1
	}
	defer func() { _ = a.Close() }()

	fc, err := a.Service.FeatureCollection(logger.WithQuery(ctx, *place, res), *place, res)
	if err != nil {
		log.Error("tessellation failed", "place", *place, "res", res, "err", err)
		return 1
	}

	path := *out
	if path == "" {
		path = export.FileName(*place, res)
	}
	if err := export.WriteFile(path, fc); err != nil {
		log.Error("write failed", "err", err)
		return 1
	}
	fmt.Printf("%d hexagons written to %s\n", len(fc.Features), path)
	return 0
}
