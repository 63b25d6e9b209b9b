package wfc

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionInfo carries the run metadata that a Session does not know itself
type SessionInfo struct {
	Sample string
	Seed   int64
}

// SessionData represents a serialized session for persistence
type SessionData struct {
	Sample     string         `yaml:"sample"`
	Seed       int64          `yaml:"seed"`
	TileWidth  int            `yaml:"tile_width"`
	TileHeight int            `yaml:"tile_height"`
	Width      int            `yaml:"width"`
	Height     int            `yaml:"height"`
	Position   int            `yaml:"position"`
	SavedAt    time.Time      `yaml:"saved_at"`
	Catalog    []TileData     `yaml:"catalog"`
	Snapshots  []SnapshotData `yaml:"snapshots"`
}

// TileData represents a serialized catalog tile. Rows are listed south first,
// each as space-separated hex colors.
type TileData struct {
	Index int      `yaml:"index"`
	Rows  []string `yaml:"rows"`
}

// SnapshotData represents one recorded grid; Cells is row-major
type SnapshotData struct {
	Step  int         `yaml:"step"`
	Known int         `yaml:"known"`
	Cells [][]float64 `yaml:"cells"`
}

// ExportSession converts a session and its whole history to SessionData
func ExportSession(s *Session, info SessionInfo) *SessionData {
	data := &SessionData{
		Sample:     info.Sample,
		Seed:       info.Seed,
		TileWidth:  s.Catalog.TileWidth,
		TileHeight: s.Catalog.TileHeight,
		Width:      s.Width,
		Height:     s.Height,
		Position:   s.position,
		SavedAt:    time.Now(),
		Catalog:    ExportCatalog(s.Catalog),
		Snapshots:  make([]SnapshotData, 0, len(s.history)),
	}

	for step, g := range s.history {
		data.Snapshots = append(data.Snapshots, serializeGrid(step, g))
	}
	return data
}

// ExportCatalog serializes every tile of cat in catalog order
func ExportCatalog(cat *Catalog) []TileData {
	out := make([]TileData, 0, cat.Len())
	for _, t := range cat.Tiles {
		out = append(out, serializeTile(t))
	}
	return out
}

func serializeTile(t *Tile) TileData {
	td := TileData{Index: t.Index, Rows: make([]string, 0, t.Height())}
	for _, row := range t.Pixels {
		hex := make([]string, len(row))
		for x, c := range row {
			hex[x] = c.Hex()
		}
		td.Rows = append(td.Rows, strings.Join(hex, " "))
	}
	return td
}

func serializeGrid(step int, g *Grid) SnapshotData {
	return SnapshotData{Step: step, Known: g.KnownCount(), Cells: GridCells(g)}
}

// GridCells returns a copy of every cell's distribution in row-major order
func GridCells(g *Grid) [][]float64 {
	cells := make([][]float64, 0, g.Width*g.Height)
	g.Each(func(c *Cell) {
		cells = append(cells, []float64(c.Probabilities.Clone()))
	})
	return cells
}

// SaveSession writes the session history to a YAML file
func SaveSession(s *Session, info SessionInfo, filename string) error {
	yamlData, err := yaml.Marshal(ExportSession(s, info))
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := os.WriteFile(filename, yamlData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadSession reads a session file written by SaveSession
func LoadSession(filename string) (*SessionData, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var data SessionData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse session YAML: %w", err)
	}
	if len(data.Snapshots) == 0 {
		return nil, &MalformedInputError{Field: "session file", Reason: "no snapshots"}
	}
	if data.Width < 1 || data.Height < 1 {
		return nil, &MalformedInputError{
			Field:  "session file",
			Reason: fmt.Sprintf("grid size %dx%d must be at least 1x1", data.Width, data.Height),
		}
	}
	return &data, nil
}

// BuildCatalog reconstructs the catalog in its recorded order
func (d *SessionData) BuildCatalog() (*Catalog, error) {
	return CatalogFromData(d.TileWidth, d.TileHeight, d.Catalog)
}

// CatalogFromData rebuilds a catalog from tiles written by ExportCatalog
func CatalogFromData(tileW, tileH int, tiles []TileData) (*Catalog, error) {
	cat := &Catalog{TileWidth: tileW, TileHeight: tileH}
	for i, td := range tiles {
		if td.Index != i {
			return nil, &MalformedInputError{
				Field:  "catalog",
				Reason: fmt.Sprintf("tile %d recorded with index %d", i, td.Index),
			}
		}
		if len(td.Rows) != tileH {
			return nil, &MalformedInputError{
				Field:  "catalog",
				Reason: fmt.Sprintf("tile %d has %d rows, want %d", i, len(td.Rows), tileH),
			}
		}
		px := make([][]Color, len(td.Rows))
		for y, row := range td.Rows {
			fields := strings.Fields(row)
			if len(fields) != tileW {
				return nil, &MalformedInputError{
					Field:  "catalog",
					Reason: fmt.Sprintf("tile %d row %d has %d colors, want %d", i, y, len(fields), tileW),
				}
			}
			px[y] = make([]Color, len(fields))
			for x, f := range fields {
				c, err := ParseColor(f)
				if err != nil {
					return nil, fmt.Errorf("tile %d: %w", i, err)
				}
				px[y][x] = c
			}
		}
		cat.Tiles = append(cat.Tiles, &Tile{Index: i, Pixels: px})
	}
	return cat, nil
}

// Grid reconstructs the snapshot recorded at step
func (d *SessionData) Grid(step int) (*Grid, error) {
	if step < 0 || step >= len(d.Snapshots) {
		return nil, fmt.Errorf("step %d out of range [0, %d)", step, len(d.Snapshots))
	}
	return d.snapshotGrid(d.Snapshots[step])
}

func (d *SessionData) snapshotGrid(sd SnapshotData) (*Grid, error) {
	g, err := GridFromCells(d.Width, d.Height, len(d.Catalog), sd.Cells)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", sd.Step, err)
	}
	return g, nil
}

// GridFromCells rebuilds a grid from distributions listed in row-major order
func GridFromCells(width, height, tiles int, cells [][]float64) (*Grid, error) {
	if width < 1 || height < 1 {
		return nil, &MalformedInputError{
			Field:  "output size",
			Reason: fmt.Sprintf("%dx%d must be at least 1x1", width, height),
		}
	}
	if len(cells) != width*height {
		return nil, &MalformedInputError{
			Field:  "snapshot",
			Reason: fmt.Sprintf("%d cells, want %d", len(cells), width*height),
		}
	}
	g := &Grid{Width: width, Height: height, tiles: tiles}
	g.Cells = make([][]*Cell, height)
	for y := 0; y < height; y++ {
		g.Cells[y] = make([]*Cell, width)
		for x := 0; x < width; x++ {
			probs := cells[y*width+x]
			if len(probs) != tiles {
				return nil, &MalformedInputError{
					Field:  "snapshot",
					Reason: fmt.Sprintf("cell (%d, %d) has %d probabilities, want %d", x, y, len(probs), tiles),
				}
			}
			g.Cells[y][x] = &Cell{X: x, Y: y, Probabilities: Distribution(probs).Clone()}
		}
	}
	return g, nil
}

// Restore rebuilds a live session positioned where it was saved
func (d *SessionData) Restore(rng Rand) (*Session, error) {
	cat, err := d.BuildCatalog()
	if err != nil {
		return nil, err
	}
	s := &Session{
		Catalog: cat,
		Rules:   NewRules(cat),
		Width:   d.Width,
		Height:  d.Height,
		rng:     rng,
	}
	for _, sd := range d.Snapshots {
		g, err := d.snapshotGrid(sd)
		if err != nil {
			return nil, err
		}
		s.history = append(s.history, g)
	}
	s.steps = len(s.history) - 1
	s.position = d.Position
	if s.position < 0 || s.position >= len(s.history) {
		s.position = len(s.history) - 1
	}
	return s, nil
}
