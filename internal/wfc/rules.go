package wfc

// EdgesMatch reports whether b may sit next to a in direction dir: the strip
// of a facing dir must equal, color for color, the strip of b facing back.
func EdgesMatch(a, b *Tile, dir Direction) bool {
	sa := a.Strip(dir)
	sb := b.Strip(dir.Opposite())
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// Rules holds the precomputed adjacency table for a catalog.
type Rules struct {
	Catalog *Catalog
	// allowed[dir][c*n+t] is true when tile t may sit on the dir side of tile c
	allowed [4][]bool
	n       int
}

// NewRules builds the adjacency table for every ordered pair of catalog tiles
func NewRules(cat *Catalog) *Rules {
	n := cat.Len()
	r := &Rules{Catalog: cat, n: n}
	for _, dir := range AllDirections() {
		table := make([]bool, n*n)
		for c, tc := range cat.Tiles {
			for t, tn := range cat.Tiles {
				table[c*n+t] = EdgesMatch(tc, tn, dir)
			}
		}
		r.allowed[dir] = table
	}
	return r
}

// Allowed returns true if neighbor may sit on the dir side of tile
func (r *Rules) Allowed(dir Direction, tile, neighbor int) bool {
	return r.allowed[dir][tile*r.n+neighbor]
}

// CompatibleCount returns how many catalog tiles may sit on the dir side of
// tile. A zero count means the tile can never have a neighbor there.
func (r *Rules) CompatibleCount(dir Direction, tile int) int {
	count := 0
	row := r.allowed[dir][tile*r.n : (tile+1)*r.n]
	for _, ok := range row {
		if ok {
			count++
		}
	}
	return count
}
