package wfc

// Propagate recomputes the distribution of every cell reachable from the
// known cells of g, one breadth-first layer at a time.
//
// Known cells form layer 1 and are never modified. A cell in layer d is reset
// to uniform and then constrained only by neighbors from layers below d, whose
// distributions are already final for this pass. Neighbors that are off the
// grid, unreached, or in the same or a later layer contribute nothing.
//
// The pass always runs to completion. If any cell ends with zero total
// weight, a *ContradictionError for the first such cell is returned.
func Propagate(g *Grid, rules *Rules) error {
	p := newPropagation(g, rules)
	return p.run()
}

type propagation struct {
	grid    *Grid
	rules   *Rules
	depth   []int // 0 means no layer assigned yet
	visited []bool
	seed    []bool

	// scratch buffers reused across cells
	product  Distribution
	marginal Distribution

	contradiction *ContradictionError
}

func newPropagation(g *Grid, rules *Rules) *propagation {
	n := g.Width * g.Height
	return &propagation{
		grid:     g,
		rules:    rules,
		depth:    make([]int, n),
		visited:  make([]bool, n),
		seed:     make([]bool, n),
		product:  make(Distribution, g.TileCount()),
		marginal: make(Distribution, g.TileCount()),
	}
}

func (p *propagation) run() error {
	var frontier []*Cell
	p.grid.Each(func(c *Cell) {
		if c.Known() {
			i := p.grid.index(c.X, c.Y)
			p.seed[i] = true
			p.depth[i] = 1
			frontier = append(frontier, c)
		}
	})

	depth := 1
	for len(frontier) > 0 {
		processed := make([]*Cell, 0, len(frontier))
		for _, c := range frontier {
			i := p.grid.index(c.X, c.Y)
			if p.visited[i] {
				continue
			}
			if !p.seed[i] {
				p.recompute(c, depth)
			}
			p.visited[i] = true
			processed = append(processed, c)
		}

		depth++
		var next []*Cell
		for _, c := range processed {
			for _, dir := range AllDirections() {
				n, ok := p.grid.Neighbor(c.X, c.Y, dir)
				if !ok {
					continue
				}
				ni := p.grid.index(n.X, n.Y)
				if p.visited[ni] {
					continue
				}
				if p.depth[ni] == 0 {
					p.depth[ni] = depth
				}
				next = append(next, n)
			}
		}
		frontier = next
	}

	if p.contradiction != nil {
		return p.contradiction
	}
	return nil
}

// recompute rebuilds c's distribution from its finalized neighbors
func (p *propagation) recompute(c *Cell, depth int) {
	dist := c.Probabilities
	dist.Reset()

	constrained := false
	for i := range p.product {
		p.product[i] = 1
	}

	for _, dir := range AllDirections() {
		n, ok := p.grid.Neighbor(c.X, c.Y, dir)
		if !ok {
			continue
		}
		nd := p.depth[p.grid.index(n.X, n.Y)]
		if nd == 0 || nd >= depth {
			continue
		}
		p.neighborMarginal(dist, n.Probabilities, dir)
		for i, m := range p.marginal {
			p.product[i] *= m
		}
		constrained = true
	}

	if !constrained {
		return
	}

	copy(dist, p.product)
	if !dist.Normalize() && p.contradiction == nil {
		p.contradiction = &ContradictionError{X: c.X, Y: c.Y}
	}
}

// neighborMarginal fills p.marginal with, for every cell tile tc, the sum over
// neighbor tiles tn of match(tc, tn) * P(tn) * P(tc).
func (p *propagation) neighborMarginal(cell, neighbor Distribution, dir Direction) {
	for tc, pc := range cell {
		sum := 0.0
		for tn, pn := range neighbor {
			if pn > 0 && p.rules.Allowed(dir, tc, tn) {
				sum += pn * pc
			}
		}
		p.marginal[tc] = sum
	}
}
