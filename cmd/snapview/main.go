// Command snapview prints recorded snapshots as ASCII, either from a session
// YAML file written by tilewave -yaml or from a snapshot database.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/tilewave/internal/render"
	"github.com/lawnchairsociety/tilewave/internal/store"
	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

func main() {
	inputFile := flag.String("input", "", "Session YAML file to read")
	dbFile := flag.String("db", "", "Snapshot database to read instead of a YAML file")
	sessionID := flag.String("session", "", "Session ID to read from -db (empty lists sessions)")
	step := flag.Int("step", -1, "Step to display (-1 for the last, -2 for all)")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	pngFile := flag.String("png", "", "Also render the chosen step as a PNG")
	flag.Parse()

	var (
		output strings.Builder
		cat    *wfc.Catalog
		last   *wfc.Grid
		err    error
	)

	switch {
	case *dbFile != "":
		cat, last, err = viewDatabase(&output, *dbFile, *sessionID, *step)
	case *inputFile != "":
		cat, last, err = viewFile(&output, *inputFile, *step)
	default:
		err = fmt.Errorf("one of -input or -db is required")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output.String()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshots written to %s\n", *outputFile)
	} else {
		fmt.Print(output.String())
	}

	if *pngFile != "" && last != nil {
		if err := render.SavePNG(*pngFile, last, cat, render.DefaultOptions()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Image written to %s\n", *pngFile)
	}
}

// viewFile renders steps of a session YAML file and returns the catalog and
// the last grid rendered.
func viewFile(output *strings.Builder, path string, step int) (*wfc.Catalog, *wfc.Grid, error) {
	data, err := wfc.LoadSession(path)
	if err != nil {
		return nil, nil, err
	}
	cat, err := data.BuildCatalog()
	if err != nil {
		return nil, nil, err
	}

	fmt.Fprintf(output, "Session %s (seed %d, %dx%d, %d tiles of %dx%d)\n",
		data.Sample, data.Seed, data.Width, data.Height, cat.Len(), data.TileWidth, data.TileHeight)
	fmt.Fprintf(output, "Saved: %s, position %d of %d\n",
		data.SavedAt.Format("2006-01-02 15:04:05"), data.Position, len(data.Snapshots)-1)
	output.WriteString(strings.Repeat("=", 40) + "\n\n")

	steps, err := pickSteps(step, len(data.Snapshots))
	if err != nil {
		return nil, nil, err
	}
	var g *wfc.Grid
	for _, i := range steps {
		if g, err = data.Grid(i); err != nil {
			return nil, nil, err
		}
		renderStep(output, i, g, cat)
	}
	return cat, g, nil
}

// viewDatabase lists sessions when id is empty, otherwise renders steps of one.
func viewDatabase(output *strings.Builder, path, id string, step int) (*wfc.Catalog, *wfc.Grid, error) {
	st, err := store.Open(store.DefaultConfig(path))
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	if id == "" {
		recs, err := st.ListSessions("")
		if err != nil {
			return nil, nil, err
		}
		for _, rec := range recs {
			latest, _ := st.LatestStep(rec.ID)
			fmt.Fprintf(output, "%s  %-14s seed %-20d %dx%d  steps %d  %s\n",
				rec.ID, rec.Sample, rec.Seed, rec.Width, rec.Height, latest,
				rec.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil, nil, nil
	}

	rec, err := st.GetSession(id)
	if err != nil {
		return nil, nil, err
	}
	cat, err := st.LoadCatalog(id)
	if err != nil {
		return nil, nil, err
	}
	latest, err := st.LatestStep(id)
	if err != nil {
		return nil, nil, err
	}

	fmt.Fprintf(output, "Session %s: %s (seed %d, %dx%d, %d tiles)\n",
		rec.ID, rec.Sample, rec.Seed, rec.Width, rec.Height, rec.Tiles)
	output.WriteString(strings.Repeat("=", 40) + "\n\n")

	steps, err := pickSteps(step, latest+1)
	if err != nil {
		return nil, nil, err
	}
	var g *wfc.Grid
	for _, i := range steps {
		if g, err = st.LoadSnapshot(id, i); err != nil {
			return nil, nil, fmt.Errorf("step %d: %w", i, err)
		}
		renderStep(output, i, g, cat)
	}
	return cat, g, nil
}

// pickSteps resolves the -step flag against n recorded snapshots
func pickSteps(step, n int) ([]int, error) {
	if n == 0 {
		return nil, fmt.Errorf("no snapshots recorded")
	}
	switch {
	case step == -2:
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	case step == -1:
		return []int{n - 1}, nil
	case step >= 0 && step < n:
		return []int{step}, nil
	default:
		return nil, fmt.Errorf("step %d out of range [0, %d)", step, n)
	}
}

func renderStep(output *strings.Builder, step int, g *wfc.Grid, cat *wfc.Catalog) {
	fmt.Fprintf(output, "Step %d (%d/%d known)\n", step, g.KnownCount(), g.Width*g.Height)
	output.WriteString(strings.Repeat("-", g.Width) + "\n")
	output.WriteString(render.ASCII(g, cat))
	output.WriteString("\n")
}
