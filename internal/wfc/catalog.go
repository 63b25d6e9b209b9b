package wfc

import "fmt"

// Catalog is the ordered set of tiles a grid distributes probability over.
// The catalog is built once and never modified while solving; tile i owns
// slot i of every Distribution.
type Catalog struct {
	Tiles      []*Tile
	TileWidth  int
	TileHeight int
}

// Len returns the number of tiles in the catalog
func (c *Catalog) Len() int {
	return len(c.Tiles)
}

// Tile returns the tile at index i
func (c *Catalog) Tile(i int) *Tile {
	return c.Tiles[i]
}

// BuildCatalog cuts every tileW×tileH window out of the sample and out of the
// sample turned 90°, 180° and 270° clockwise, in that order. Windows with
// identical content are kept as separate entries.
func BuildCatalog(sample Sample, tileW, tileH int) (*Catalog, error) {
	if err := sample.Validate(); err != nil {
		return nil, err
	}
	if tileW < 1 || tileH < 1 {
		return nil, &MalformedInputError{
			Field:  "tile size",
			Reason: fmt.Sprintf("%dx%d must be at least 1x1", tileW, tileH),
		}
	}
	if tileW > sample.Width() || tileH > sample.Height() {
		return nil, &MalformedInputError{
			Field: "tile size",
			Reason: fmt.Sprintf("%dx%d does not fit in %dx%d sample",
				tileW, tileH, sample.Width(), sample.Height()),
		}
	}

	cat := &Catalog{TileWidth: tileW, TileHeight: tileH}
	rotated := sample
	for turn := 0; turn < 4; turn++ {
		if turn > 0 {
			rotated = rotated.RotateClockwise()
		}
		cat.extract(rotated)
	}
	return cat, nil
}

// extract appends every window of s that fits the catalog's tile size.
// Offsets advance along x in the outer loop and y in the inner loop.
func (c *Catalog) extract(s Sample) {
	w, h := s.Width(), s.Height()
	for ox := 0; ox <= w-c.TileWidth; ox++ {
		for oy := 0; oy <= h-c.TileHeight; oy++ {
			c.Tiles = append(c.Tiles, &Tile{
				Index:  len(c.Tiles),
				Pixels: s.window(ox, oy, c.TileWidth, c.TileHeight),
			})
		}
	}
}

// DistinctCount returns how many tiles differ in content. Duplicates keep
// their own probability slot; this is informational only.
func (c *Catalog) DistinctCount() int {
	seen := make(map[string]bool)
	for _, t := range c.Tiles {
		seen[tileKey(t)] = true
	}
	return len(seen)
}

func tileKey(t *Tile) string {
	b := make([]byte, 0, t.Width()*t.Height()*3)
	for _, row := range t.Pixels {
		for _, px := range row {
			b = append(b, px.R, px.G, px.B)
		}
	}
	return string(b)
}
