package wfc

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func testCatalog(t *testing.T, n int) *Catalog {
	t.Helper()
	cat := &Catalog{TileWidth: 1, TileHeight: 1}
	palette := []Color{black, white, red}
	for i := 0; i < n; i++ {
		cat.Tiles = append(cat.Tiles, &Tile{Index: i, Pixels: [][]Color{{palette[i%len(palette)]}}})
	}
	return cat
}

func TestDistributionEntropy(t *testing.T) {
	tests := []struct {
		name string
		d    Distribution
		want float64
	}{
		{"certain", Distribution{0, 1, 0}, 0},
		{"uniform 2", Distribution{0.5, 0.5}, 1},
		{"uniform 4", Uniform(4), 2},
		{"uniform 36", Uniform(36), math.Log2(36)},
		{"skewed", Distribution{0.25, 0.75}, -(0.25*math.Log2(0.25) + 0.75*math.Log2(0.75))},
		{"all zero", Distribution{0, 0}, 0},
	}

	for _, tc := range tests {
		got := tc.d.Entropy()
		if math.Abs(got-tc.want) > epsilon {
			t.Errorf("%s: Entropy() = %f, want %f", tc.name, got, tc.want)
		}
		if got < 0 || got > math.Log2(float64(len(tc.d)))+epsilon {
			t.Errorf("%s: Entropy() = %f outside [0, log2(%d)]", tc.name, got, len(tc.d))
		}
	}
}

func TestDistributionNormalize(t *testing.T) {
	d := Distribution{1, 3, 0, 4}
	if !d.Normalize() {
		t.Fatal("Normalize() = false, want true")
	}
	if math.Abs(d.Sum()-1) > epsilon {
		t.Errorf("Sum() after Normalize = %f, want 1", d.Sum())
	}
	if d[2] != 0 {
		t.Errorf("zero weight became %f", d[2])
	}

	again := d.Clone()
	again.Normalize()
	for i := range d {
		if math.Abs(again[i]-d[i]) > epsilon {
			t.Errorf("second Normalize changed [%d]: %f -> %f", i, d[i], again[i])
		}
	}

	zero := Distribution{0, 0, 0}
	if zero.Normalize() {
		t.Error("Normalize() on all-zero = true, want false")
	}
	if zero.Sum() != 0 {
		t.Errorf("all-zero Sum() = %f after Normalize", zero.Sum())
	}
}

func TestDistributionCollapsed(t *testing.T) {
	tests := []struct {
		d    Distribution
		want int
	}{
		{Distribution{0, 1, 0}, 1},
		{Distribution{1}, 0},
		{Distribution{0.5, 0.5}, -1},
		{Distribution{0, 0}, -1},
	}

	for _, tc := range tests {
		if got := tc.d.Collapsed(); got != tc.want {
			t.Errorf("%v.Collapsed() = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestNewGridUniform(t *testing.T) {
	cat := testCatalog(t, 4)
	g, err := NewGrid(5, 3, cat)
	if err != nil {
		t.Fatalf("NewGrid() failed: %v", err)
	}

	if g.Width != 5 || g.Height != 3 {
		t.Fatalf("grid is %dx%d, want 5x3", g.Width, g.Height)
	}
	if g.TileCount() != 4 {
		t.Errorf("TileCount() = %d, want 4", g.TileCount())
	}

	count := 0
	g.Each(func(c *Cell) {
		count++
		if math.Abs(c.Entropy()-2) > epsilon {
			t.Errorf("cell (%d, %d) entropy = %f, want 2", c.X, c.Y, c.Entropy())
		}
		if c.Known() {
			t.Errorf("cell (%d, %d) should not be known", c.X, c.Y)
		}
	})
	if count != 15 {
		t.Errorf("Each visited %d cells, want 15", count)
	}
	if g.IsComplete() || IsComplete(g) {
		t.Error("fresh grid reported complete")
	}
}

func TestNewGridMalformed(t *testing.T) {
	cat := testCatalog(t, 2)
	tests := []struct {
		name string
		w, h int
		cat  *Catalog
	}{
		{"zero width", 0, 3, cat},
		{"negative height", 3, -1, cat},
		{"nil catalog", 2, 2, nil},
		{"empty catalog", 2, 2, &Catalog{}},
	}

	for _, tc := range tests {
		if _, err := NewGrid(tc.w, tc.h, tc.cat); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("%s: NewGrid() error = %v, want ErrMalformedInput", tc.name, err)
		}
	}
}

func TestGridNeighbors(t *testing.T) {
	g, err := NewGrid(3, 2, testCatalog(t, 2))
	if err != nil {
		t.Fatalf("NewGrid() failed: %v", err)
	}

	tests := []struct {
		x, y   int
		dir    Direction
		wantOK bool
		wx, wy int
	}{
		{0, 0, West, false, 0, 0},
		{0, 0, South, false, 0, 0},
		{0, 0, East, true, 1, 0},
		{0, 0, North, true, 0, 1},
		{2, 1, East, false, 0, 0},
		{2, 1, North, false, 0, 0},
		{2, 1, West, true, 1, 1},
		{2, 1, South, true, 2, 0},
	}

	for _, tc := range tests {
		n, ok := g.Neighbor(tc.x, tc.y, tc.dir)
		if ok != tc.wantOK {
			t.Errorf("Neighbor(%d, %d, %s) ok = %v, want %v", tc.x, tc.y, tc.dir, ok, tc.wantOK)
			continue
		}
		if ok && (n.X != tc.wx || n.Y != tc.wy) {
			t.Errorf("Neighbor(%d, %d, %s) = (%d, %d), want (%d, %d)", tc.x, tc.y, tc.dir, n.X, n.Y, tc.wx, tc.wy)
		}
	}
}

func TestGridCloneIndependent(t *testing.T) {
	g, err := NewGrid(2, 2, testCatalog(t, 3))
	if err != nil {
		t.Fatalf("NewGrid() failed: %v", err)
	}
	clone := g.Clone()

	clone.Cells[1][0].Probabilities = Distribution{1, 0, 0}
	clone.Cells[0][1].Probabilities[2] = 0

	if g.Cells[1][0].Known() {
		t.Error("mutating clone cell changed the original")
	}
	if g.Cells[0][1].Probabilities[2] == 0 {
		t.Error("clone shares a distribution with the original")
	}
	if clone.KnownCount() != 1 {
		t.Errorf("clone KnownCount() = %d, want 1", clone.KnownCount())
	}
	if g.KnownCount() != 0 {
		t.Errorf("original KnownCount() = %d, want 0", g.KnownCount())
	}
}
