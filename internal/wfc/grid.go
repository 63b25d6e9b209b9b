package wfc

import (
	"fmt"
	"math"
)

// Distribution maps catalog index to probability.
type Distribution []float64

// Uniform returns a distribution giving every one of n tiles 1/n
func Uniform(n int) Distribution {
	d := make(Distribution, n)
	d.Reset()
	return d
}

// Reset makes the distribution uniform in place
func (d Distribution) Reset() {
	p := 1 / float64(len(d))
	for i := range d {
		d[i] = p
	}
}

// Sum returns the total weight
func (d Distribution) Sum() float64 {
	total := 0.0
	for _, p := range d {
		total += p
	}
	return total
}

// Normalize divides every weight by the total. When the total is zero the
// distribution is left all-zero and false is returned.
func (d Distribution) Normalize() bool {
	total := d.Sum()
	if total <= 0 {
		for i := range d {
			d[i] = 0
		}
		return false
	}
	for i := range d {
		d[i] /= total
	}
	return true
}

// Entropy returns the base-2 Shannon entropy. Zero probabilities contribute 0.
func (d Distribution) Entropy() float64 {
	e := 0.0
	for _, p := range d {
		if p > 0 {
			e -= p * math.Log2(p)
		}
	}
	return e
}

// Collapsed returns the index of the tile holding all the weight, or -1
func (d Distribution) Collapsed() int {
	chosen := -1
	for i, p := range d {
		switch {
		case p == 1 && chosen < 0:
			chosen = i
		case p != 0:
			return -1
		}
	}
	return chosen
}

// Clone returns a copy of the distribution
func (d Distribution) Clone() Distribution {
	out := make(Distribution, len(d))
	copy(out, d)
	return out
}

// Cell represents a single position in the output grid
type Cell struct {
	X, Y          int
	Probabilities Distribution
}

// Entropy returns the entropy of the cell's distribution
func (c *Cell) Entropy() float64 {
	return c.Probabilities.Entropy()
}

// Known reports whether the cell is fully collapsed (entropy exactly 0)
func (c *Cell) Known() bool {
	return c.Entropy() == 0
}

// Contradicted reports whether the cell has no tile left
func (c *Cell) Contradicted() bool {
	return c.Probabilities.Sum() == 0
}

// Grid is the probability state of the output, indexed Cells[y][x].
type Grid struct {
	Width, Height int
	Cells         [][]*Cell
	tiles         int
}

// NewGrid creates a width×height grid uniform over the catalog
func NewGrid(width, height int, cat *Catalog) (*Grid, error) {
	if width < 1 || height < 1 {
		return nil, &MalformedInputError{
			Field:  "output size",
			Reason: fmt.Sprintf("%dx%d must be at least 1x1", width, height),
		}
	}
	if cat == nil || cat.Len() == 0 {
		return nil, &MalformedInputError{Field: "catalog", Reason: "no tiles"}
	}

	g := &Grid{Width: width, Height: height, tiles: cat.Len()}
	g.Cells = make([][]*Cell, height)
	for y := 0; y < height; y++ {
		g.Cells[y] = make([]*Cell, width)
		for x := 0; x < width; x++ {
			g.Cells[y][x] = &Cell{X: x, Y: y, Probabilities: Uniform(cat.Len())}
		}
	}
	return g, nil
}

// TileCount returns the catalog size the grid was built for
func (g *Grid) TileCount() int {
	return g.tiles
}

// InBounds reports whether (x, y) lies on the grid
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// At returns the cell at (x, y); ok is false off the grid
func (g *Grid) At(x, y int) (*Cell, bool) {
	if !g.InBounds(x, y) {
		return nil, false
	}
	return g.Cells[y][x], true
}

// Neighbor returns the cell one step from (x, y) in dir; ok is false off the grid
func (g *Grid) Neighbor(x, y int, dir Direction) (*Cell, bool) {
	dx, dy := dir.Offset()
	return g.At(x+dx, y+dy)
}

// index flattens (x, y) into row-major order
func (g *Grid) index(x, y int) int {
	return y*g.Width + x
}

// Each calls fn for every cell in row-major order, south row first
func (g *Grid) Each(fn func(c *Cell)) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			fn(g.Cells[y][x])
		}
	}
}

// Clone returns a deep copy sharing no cells with g
func (g *Grid) Clone() *Grid {
	out := &Grid{Width: g.Width, Height: g.Height, tiles: g.tiles}
	out.Cells = make([][]*Cell, g.Height)
	for y, row := range g.Cells {
		out.Cells[y] = make([]*Cell, len(row))
		for x, c := range row {
			out.Cells[y][x] = &Cell{X: c.X, Y: c.Y, Probabilities: c.Probabilities.Clone()}
		}
	}
	return out
}

// KnownCount returns the number of collapsed cells
func (g *Grid) KnownCount() int {
	n := 0
	g.Each(func(c *Cell) {
		if c.Known() {
			n++
		}
	})
	return n
}

// IsComplete returns true when every cell has entropy 0
func (g *Grid) IsComplete() bool {
	for _, row := range g.Cells {
		for _, c := range row {
			if c.Entropy() > 0 {
				return false
			}
		}
	}
	return true
}

// IsComplete returns true when every cell of g has entropy 0
func IsComplete(g *Grid) bool {
	return g.IsComplete()
}
