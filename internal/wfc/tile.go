package wfc

// Direction represents a cardinal direction in the grid. The declaration order
// is the order in which neighbors are visited everywhere in the solver.
type Direction int

const (
	West Direction = iota
	East
	South
	North
)

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case West:
		return "west"
	case East:
		return "east"
	case South:
		return "south"
	case North:
		return "north"
	default:
		return "unknown"
	}
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	switch d {
	case West:
		return East
	case East:
		return West
	case South:
		return North
	case North:
		return South
	default:
		return d
	}
}

// Offset returns the coordinate delta of one step in this direction. North is +y.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case West:
		return -1, 0
	case East:
		return 1, 0
	case South:
		return 0, -1
	case North:
		return 0, 1
	}
	return 0, 0
}

// AllDirections returns all four cardinal directions in solver order
func AllDirections() []Direction {
	return []Direction{West, East, South, North}
}

// Tile is an immutable patch of colors cut from a sample. Pixels are stored
// row-major, Pixels[y][x], with row 0 on the south edge.
type Tile struct {
	Index  int // Position in the owning catalog
	Pixels [][]Color
}

// Width returns the tile width in pixels
func (t *Tile) Width() int {
	if len(t.Pixels) == 0 {
		return 0
	}
	return len(t.Pixels[0])
}

// Height returns the tile height in pixels
func (t *Tile) Height() int {
	return len(t.Pixels)
}

// At returns the color at (x, y)
func (t *Tile) At(x, y int) Color {
	return t.Pixels[y][x]
}

// Strip returns the border of the tile facing dir: west is the first column,
// east the last column, south the first row and north the last row.
func (t *Tile) Strip(dir Direction) []Color {
	w, h := t.Width(), t.Height()
	switch dir {
	case West, East:
		x := 0
		if dir == East {
			x = w - 1
		}
		strip := make([]Color, h)
		for y := 0; y < h; y++ {
			strip[y] = t.Pixels[y][x]
		}
		return strip
	case South:
		return t.Pixels[0]
	case North:
		return t.Pixels[h-1]
	}
	return nil
}
