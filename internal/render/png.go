package render

import (
	"fmt"
	"io"
	"os"

	"github.com/gogpu/gg"

	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// Options controls PNG output
type Options struct {
	CellPixels int  // Size of one tile pixel on screen
	Border     bool // Outline collapsed cells
}

// DefaultOptions matches the render block of the default config
func DefaultOptions() Options {
	return Options{CellPixels: 8, Border: true}
}

// borderColor outlines collapsed cells (#ff69b4)
var borderColor = [3]float64{1, 0x69 / 255.0, 0xb4 / 255.0}

// Size returns the image dimensions PNG produces for g
func Size(g *wfc.Grid, cat *wfc.Catalog, opts Options) (int, int) {
	return g.Width * cat.TileWidth * opts.CellPixels, g.Height * cat.TileHeight * opts.CellPixels
}

// PNG draws every cell's blended tile, north up, and writes the image to w
func PNG(w io.Writer, g *wfc.Grid, cat *wfc.Catalog, opts Options) error {
	if opts.CellPixels < 1 {
		return fmt.Errorf("render: cell size %d must be positive", opts.CellPixels)
	}
	width, height := Size(g, cat, opts)
	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.RGB(0, 0, 0))

	cp := float64(opts.CellPixels)
	cellW := float64(cat.TileWidth) * cp
	cellH := float64(cat.TileHeight) * cp

	var drawErr error
	g.Each(func(c *wfc.Cell) {
		if drawErr != nil {
			return
		}
		ox := float64(c.X) * cellW
		oy := float64(g.Height-1-c.Y) * cellH

		patch := Blend(c, cat)
		for ty, row := range patch {
			for tx, px := range row {
				dc.SetRGB(float64(px.R)/255, float64(px.G)/255, float64(px.B)/255)
				dc.DrawRectangle(ox+float64(tx)*cp, oy+float64(cat.TileHeight-1-ty)*cp, cp, cp)
				if err := dc.Fill(); err != nil {
					drawErr = fmt.Errorf("render: fill cell (%d, %d): %w", c.X, c.Y, err)
					return
				}
			}
		}

		if opts.Border && c.Known() && !c.Contradicted() {
			dc.SetRGB(borderColor[0], borderColor[1], borderColor[2])
			dc.SetLineWidth(1)
			dc.DrawRectangle(ox+0.5, oy+0.5, cellW-1, cellH-1)
			if err := dc.Stroke(); err != nil {
				drawErr = fmt.Errorf("render: border cell (%d, %d): %w", c.X, c.Y, err)
			}
		}
	})
	if drawErr != nil {
		return drawErr
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

// SavePNG writes the PNG rendering of g to path
func SavePNG(path string, g *wfc.Grid, cat *wfc.Catalog, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := PNG(f, g, cat, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
