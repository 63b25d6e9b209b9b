package wfc

import "fmt"

// Session drives a grid through collapse steps and keeps every intermediate
// grid so the caller can step back and forward again without recomputing.
//
// Snapshots are never modified once recorded: each new step clones the
// newest snapshot and mutates the clone. A Session is not safe for
// concurrent use.
type Session struct {
	Catalog       *Catalog
	Rules         *Rules
	Width, Height int

	rng      Rand
	history  []*Grid
	position int
	steps    int
}

// StepResult describes the outcome of a successful Advance that computed a
// new snapshot.
type StepResult struct {
	X, Y int // The collapsed cell
	Tile int // The catalog index it collapsed to
}

// NewSession creates a session holding a single fresh uniform grid
func NewSession(cat *Catalog, rules *Rules, width, height int, rng Rand) (*Session, error) {
	if rules == nil {
		rules = NewRules(cat)
	}
	s := &Session{
		Catalog: cat,
		Rules:   rules,
		Width:   width,
		Height:  height,
		rng:     rng,
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards all history and starts again from a uniform grid
func (s *Session) Reset() error {
	g, err := NewGrid(s.Width, s.Height, s.Catalog)
	if err != nil {
		return err
	}
	s.history = []*Grid{g}
	s.position = 0
	s.steps = 0
	return nil
}

// Current returns the snapshot at the current position. Callers must treat
// it as read-only.
func (s *Session) Current() *Grid {
	return s.history[s.position]
}

// Position returns the index of the current snapshot
func (s *Session) Position() int {
	return s.position
}

// Len returns the number of recorded snapshots
func (s *Session) Len() int {
	return len(s.history)
}

// Steps returns how many collapse steps have been computed since the last reset
func (s *Session) Steps() int {
	return s.steps
}

// Snapshot returns the recorded grid at index i
func (s *Session) Snapshot(i int) (*Grid, error) {
	if i < 0 || i >= len(s.history) {
		return nil, fmt.Errorf("snapshot %d out of range [0, %d)", i, len(s.history))
	}
	return s.history[i], nil
}

// IsComplete reports whether the current snapshot is fully collapsed
func (s *Session) IsComplete() bool {
	return s.Current().IsComplete()
}

// Advance moves one step forward. If the current position is behind the
// newest snapshot it simply moves to the next recorded one. Otherwise, when
// the grid is not complete, it selects a cell, collapses it, propagates, and
// records the result as a new snapshot.
//
// Returns false with a nil error when there is nothing left to do. On error
// no snapshot is recorded and the position is unchanged.
func (s *Session) Advance() (bool, error) {
	_, advanced, err := s.advance()
	return advanced, err
}

// AdvanceStep is Advance but also reports which cell was collapsed. The
// result is nil when the step replayed recorded history.
func (s *Session) AdvanceStep() (*StepResult, bool, error) {
	return s.advance()
}

func (s *Session) advance() (*StepResult, bool, error) {
	if s.position < len(s.history)-1 {
		s.position++
		return nil, true, nil
	}
	if s.IsComplete() {
		return nil, false, nil
	}

	next := s.Current().Clone()
	cell, err := SelectNextCell(next, s.rng)
	if err != nil {
		return nil, false, err
	}
	tile, err := Collapse(cell, s.rng)
	if err != nil {
		return nil, false, err
	}
	if err := Propagate(next, s.Rules); err != nil {
		return nil, false, err
	}

	s.history = append(s.history, next)
	s.position++
	s.steps++
	return &StepResult{X: cell.X, Y: cell.Y, Tile: tile}, true, nil
}

// StepBack moves to the previous snapshot. Returns false at the first one.
func (s *Session) StepBack() bool {
	if s.position == 0 {
		return false
	}
	s.position--
	return true
}

// Run advances until the grid is complete or maxSteps steps were taken.
// maxSteps <= 0 means no limit. Returns the number of steps taken.
func (s *Session) Run(maxSteps int) (int, error) {
	taken := 0
	for maxSteps <= 0 || taken < maxSteps {
		advanced, err := s.Advance()
		if err != nil {
			return taken, err
		}
		if !advanced {
			break
		}
		taken++
	}
	return taken, nil
}
