// Package render turns solver grids into something a person can look at.
package render

import (
	"math"
	"strings"

	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// Blend returns the tile-sized color patch shown for a cell: the average of
// the catalog tiles' colors weighted by each tile's share of the cell's
// weight. A collapsed cell shows its tile exactly and a contradicted cell is
// all black.
func Blend(c *wfc.Cell, cat *wfc.Catalog) [][]wfc.Color {
	tw, th := cat.TileWidth, cat.TileHeight
	acc := make([][][3]float64, th)
	for y := range acc {
		acc[y] = make([][3]float64, tw)
	}

	total := c.Probabilities.Sum()
	if total > 0 {
		for i, p := range c.Probabilities {
			if p <= 0 {
				continue
			}
			share := p / total
			tile := cat.Tile(i)
			for y := 0; y < th; y++ {
				for x := 0; x < tw; x++ {
					px := tile.At(x, y)
					acc[y][x][0] += float64(px.R) * share
					acc[y][x][1] += float64(px.G) * share
					acc[y][x][2] += float64(px.B) * share
				}
			}
		}
	}

	out := make([][]wfc.Color, th)
	for y := range out {
		out[y] = make([]wfc.Color, tw)
		for x := range out[y] {
			out[y][x] = wfc.Color{
				R: channel(acc[y][x][0]),
				G: channel(acc[y][x][1]),
				B: channel(acc[y][x][2]),
			}
		}
	}
	return out
}

func channel(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ramp runs from dark to light
const ramp = " .:-=+*#%@"

// Glyph returns the character ASCII uses for a cell: '?' while uncertain,
// '!' when contradicted, otherwise the ramp glyph nearest the luminance of
// the tile's south-west pixel.
func Glyph(c *wfc.Cell, cat *wfc.Catalog) byte {
	if c.Contradicted() {
		return '!'
	}
	t := c.Probabilities.Collapsed()
	if t < 0 {
		return '?'
	}
	px := cat.Tile(t).At(0, 0)
	lum := (0.2126*float64(px.R) + 0.7152*float64(px.G) + 0.0722*float64(px.B)) / 255
	i := int(math.Round(lum * float64(len(ramp)-1)))
	return ramp[min(max(i, 0), len(ramp)-1)]
}

// ASCII draws the grid one character per cell, north row first
func ASCII(g *wfc.Grid, cat *wfc.Catalog) string {
	var b strings.Builder
	b.Grow((g.Width + 1) * g.Height)
	for y := g.Height - 1; y >= 0; y-- {
		for x := 0; x < g.Width; x++ {
			b.WriteByte(Glyph(g.Cells[y][x], cat))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
