package wfc

// Rand is the source of randomness used for selection and collapse.
// *math/rand.Rand satisfies it; seeding it reproduces a run exactly.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// SelectNextCell picks the cell to collapse next.
//
// Cells are scanned column by column: x outer, y inner. With nothing known
// yet, any cell may start the run and one is chosen uniformly. Otherwise the
// candidates are the neighbors of known cells that still have entropy above
// zero, gathered by scanning known cells in column order and their neighbors
// in direction order. The lowest-entropy candidate wins; the first one found
// wins a tie.
func SelectNextCell(g *Grid, rng Rand) (*Cell, error) {
	var known []*Cell
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			if c := g.Cells[y][x]; c.Known() {
				known = append(known, c)
			}
		}
	}

	if len(known) == 0 {
		i := rng.Intn(g.Width * g.Height)
		return g.Cells[i%g.Height][i/g.Height], nil
	}

	var best *Cell
	bestEntropy := 0.0
	for _, k := range known {
		for _, dir := range AllDirections() {
			n, ok := g.Neighbor(k.X, k.Y, dir)
			if !ok {
				continue
			}
			e := n.Entropy()
			if e <= 0 {
				continue
			}
			if best == nil || e < bestEntropy {
				best = n
				bestEntropy = e
			}
		}
	}

	if best == nil {
		return nil, ErrNoCandidate
	}
	return best, nil
}

// Collapse draws one tile from the cell's distribution and makes the cell
// certain of it. The draw walks the catalog in order accumulating probability
// until the running sum reaches a uniform value in [0, 1). Returns the chosen
// catalog index.
func Collapse(c *Cell, rng Rand) (int, error) {
	dist := c.Probabilities
	if dist.Sum() <= 0 {
		return -1, &ContradictionError{X: c.X, Y: c.Y}
	}

	u := rng.Float64()
	chosen, last := -1, -1
	s := 0.0
	for i, p := range dist {
		if p <= 0 {
			continue
		}
		last = i
		s += p
		if s >= u {
			chosen = i
			break
		}
	}
	// Rounding can leave the running sum just under u
	if chosen < 0 {
		chosen = last
	}

	for i := range dist {
		dist[i] = 0
	}
	dist[chosen] = 1
	return chosen, nil
}
