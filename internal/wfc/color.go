package wfc

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB triple. Two colors are equal only when every channel matches.
type Color struct {
	R, G, B uint8
}

// ParseColor parses a "#rrggbb" or "rrggbb" hex string.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer
func (c Color) String() string {
	return c.Hex()
}

// Sample is a rectangular grid of colors stored row-major: Sample[y][x], with
// row 0 being the southern edge.
type Sample [][]Color

// Width returns the number of columns in the first row.
func (s Sample) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Height returns the number of rows.
func (s Sample) Height() int {
	return len(s)
}

// Validate checks that the sample is non-empty and rectangular.
func (s Sample) Validate() error {
	if len(s) == 0 {
		return &MalformedInputError{Field: "sample", Reason: "no rows"}
	}
	w := len(s[0])
	if w == 0 {
		return &MalformedInputError{Field: "sample", Reason: "row 0 is empty"}
	}
	for y, row := range s {
		if len(row) != w {
			return &MalformedInputError{
				Field:  "sample",
				Reason: fmt.Sprintf("row %d has %d cells, want %d", y, len(row), w),
			}
		}
	}
	return nil
}

// RotateClockwise returns a copy of the sample turned 90° clockwise. Width and
// height swap: the cell at (x, y) moves to (y, width-1-x).
func (s Sample) RotateClockwise() Sample {
	w, h := s.Width(), s.Height()
	out := make(Sample, w)
	for y := range out {
		out[y] = make([]Color, h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[w-1-x][y] = s[y][x]
		}
	}
	return out
}

// window copies the w×h region whose south-west corner is (ox, oy).
func (s Sample) window(ox, oy, w, h int) [][]Color {
	px := make([][]Color, h)
	for y := 0; y < h; y++ {
		px[y] = make([]Color, w)
		copy(px[y], s[oy+y][ox:ox+w])
	}
	return px
}
