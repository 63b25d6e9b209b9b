// Command tilewave runs one headless generation and writes the result as
// ASCII, PNG, a session YAML file and/or a snapshot database.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lawnchairsociety/tilewave/internal/config"
	"github.com/lawnchairsociety/tilewave/internal/logger"
	"github.com/lawnchairsociety/tilewave/internal/render"
	"github.com/lawnchairsociety/tilewave/internal/sample"
	"github.com/lawnchairsociety/tilewave/internal/store"
	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

func main() {
	configFile := flag.String("config", "data/tilewave.yaml", "Path to config YAML file")
	samplesFile := flag.String("samples", "", "Sample library YAML merged over the built-ins (overrides config)")
	sampleName := flag.String("sample", "", "Sample to learn from (overrides config)")
	seed := flag.Int64("seed", 0, "Random seed (default: config, then current time)")
	steps := flag.Int("steps", -1, "Stop after this many steps (0: until complete; default: config)")
	width := flag.Int("width", 0, "Output width in cells (default: config)")
	height := flag.Int("height", 0, "Output height in cells (default: config)")
	pngFile := flag.String("png", "", "Write the result as a PNG image")
	yamlFile := flag.String("yaml", "", "Write the whole session history as YAML")
	dbFile := flag.String("db", "", "Record the session into this SQLite database")
	ascii := flag.Bool("ascii", false, "Print the result as ASCII")
	list := flag.Bool("list", false, "List the available samples and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logConfig, _ := logger.LoadConfig(*configFile)
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	solver := &cfg.Solver
	if *samplesFile != "" {
		solver.SamplesFile = *samplesFile
	}
	if *sampleName != "" {
		solver.Sample = *sampleName
	}
	if *seed != 0 {
		solver.Seed = *seed
	}
	if *steps >= 0 {
		solver.MaxSteps = *steps
	}
	if *width > 0 {
		solver.OutputWidth = *width
	}
	if *height > 0 {
		solver.OutputHeight = *height
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lib, err := sample.LoadLibrary(solver.SamplesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *list {
		for _, name := range lib.Names() {
			s, _ := lib.Get(name)
			fmt.Printf("%-14s %2dx%-2d %s\n", name, s.Width(), s.Height(), lib.Describe(name))
		}
		return
	}

	smp, err := lib.Get(solver.Sample)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runSeed := solver.Seed
	if runSeed == 0 {
		runSeed = time.Now().UnixNano()
	}

	gen, err := wfc.NewGenerator(&wfc.GeneratorConfig{
		Sample:     smp,
		TileWidth:  solver.TileWidth,
		TileHeight: solver.TileHeight,
		Width:      solver.OutputWidth,
		Height:     solver.OutputHeight,
		Seed:       runSeed,
		MaxSteps:   solver.MaxSteps,
		MaxRetries: solver.MaxRetries,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Generating",
		"sample", solver.Sample,
		"seed", runSeed,
		"tiles", gen.Catalog().Len(),
		"distinct_tiles", gen.Catalog().DistinctCount(),
		"width", solver.OutputWidth,
		"height", solver.OutputHeight)

	start := time.Now()
	out, err := gen.Generate()
	if err != nil {
		logger.Error("Generation failed", "sample", solver.Sample, "seed", runSeed, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sess := out.Session
	logger.Info("Generation finished",
		"seed", out.Seed,
		"attempts", out.Attempts,
		"steps", out.Steps,
		"complete", sess.IsComplete(),
		"duration", time.Since(start).String())

	if *ascii {
		fmt.Print(render.ASCII(sess.Current(), sess.Catalog))
	}

	if *pngFile != "" {
		opts := render.Options{CellPixels: cfg.Render.CellPixels, Border: cfg.Render.Border}
		if err := render.SavePNG(*pngFile, sess.Current(), sess.Catalog, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Image written to %s\n", *pngFile)
	}

	if *yamlFile != "" {
		info := wfc.SessionInfo{Sample: solver.Sample, Seed: out.Seed}
		if err := wfc.SaveSession(sess, info, *yamlFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Session written to %s (%d snapshots)\n", *yamlFile, sess.Len())
	}

	if *dbFile != "" || cfg.Store.Enabled() {
		storeCfg := cfg.Store.StoreOptions()
		if *dbFile != "" {
			storeCfg = store.DefaultConfig(*dbFile)
		}
		if err := record(storeCfg, solver.Sample, smp, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func record(cfg store.Config, name string, smp wfc.Sample, out *wfc.Generated) error {
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.RecordSession(name, smp, out.Seed, out.Session)
	if err != nil {
		return err
	}
	logger.Info("Session recorded", "session_id", rec.ID, "snapshots", out.Session.Len())
	fmt.Printf("Session recorded as %s\n", rec.ID)
	return nil
}
