package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lawnchairsociety/tilewave/internal/render"
	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// Frame is the reply to every command: the session state at the current
// position plus any message or error the command produced.
type Frame struct {
	Command  string `json:"command"`
	Session  string `json:"session,omitempty"`
	Sample   string `json:"sample"`
	Seed     int64  `json:"seed"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Tiles    int    `json:"tiles"`
	Position int    `json:"position"`
	Length   int    `json:"length"`
	Known    int    `json:"known"`
	Complete bool   `json:"complete"`

	Collapsed     *CollapseView `json:"collapsed,omitempty"`
	Contradiction *Point        `json:"contradiction,omitempty"`
	Message       string        `json:"message,omitempty"`
	Error         string        `json:"error,omitempty"`

	// Cells is row-major, row 0 south
	Cells []CellView `json:"cells,omitempty"`

	ascii string
}

// Point is a cell coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CollapseView reports the cell a step collapsed.
type CollapseView struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Tile int `json:"tile"`
}

// CellView is one cell of a frame.
type CellView struct {
	Known   bool    `json:"known"`
	Tile    int     `json:"tile"` // -1 until collapsed
	Entropy float64 `json:"entropy"`

	// Colors is the blended tile patch, rows south first, as #rrggbb
	Colors [][]string `json:"colors"`
}

// newFrame describes g, the grid at the session's current position
func newFrame(g *wfc.Grid, cat *wfc.Catalog) *Frame {
	f := &Frame{
		Width:    g.Width,
		Height:   g.Height,
		Tiles:    cat.Len(),
		Known:    g.KnownCount(),
		Complete: g.IsComplete(),
		Cells:    make([]CellView, 0, g.Width*g.Height),
		ascii:    render.ASCII(g, cat),
	}
	g.Each(func(c *wfc.Cell) {
		patch := render.Blend(c, cat)
		colors := make([][]string, len(patch))
		for y, row := range patch {
			colors[y] = make([]string, len(row))
			for x, px := range row {
				colors[y][x] = px.Hex()
			}
		}
		f.Cells = append(f.Cells, CellView{
			Known:   c.Known(),
			Tile:    c.Probabilities.Collapsed(),
			Entropy: c.Entropy(),
			Colors:  colors,
		})
	})
	return f
}

// setError records err on the frame, with the cell for a contradiction
func (f *Frame) setError(err error) {
	f.Error = err.Error()
	var ce *wfc.ContradictionError
	if errors.As(err, &ce) {
		f.Contradiction = &Point{X: ce.X, Y: ce.Y}
	}
}

// Text renders the frame for line-based clients.
func (f *Frame) Text() string {
	var b strings.Builder
	if f.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", f.Error)
	}
	if f.Message != "" {
		b.WriteString(f.Message)
		b.WriteByte('\n')
	}
	if f.Width == 0 {
		return b.String()
	}

	status := "in progress"
	if f.Complete {
		status = "complete"
	}
	fmt.Fprintf(&b, "%s seed %d | step %d/%d | known %d/%d | %s\n",
		f.Sample, f.Seed, f.Position, f.Length-1, f.Known, f.Width*f.Height, status)
	if f.Collapsed != nil {
		fmt.Fprintf(&b, "collapsed (%d, %d) to tile %d\n", f.Collapsed.X, f.Collapsed.Y, f.Collapsed.Tile)
	}
	b.WriteString(f.ascii)
	return b.String()
}
