package wfc

import (
	"errors"
	"fmt"
	"math/rand"
)

// GeneratorConfig contains parameters for a complete headless run
type GeneratorConfig struct {
	Sample     Sample
	TileWidth  int
	TileHeight int
	Width      int   // Output width in cells
	Height     int   // Output height in cells
	Seed       int64 // Base seed; attempt n uses Seed + n*1000
	MaxSteps   int   // Per attempt; 0 means until complete
	MaxRetries int   // Fresh restarts allowed after a contradiction
}

// DefaultGeneratorConfig returns the playground defaults for a sample
func DefaultGeneratorConfig(sample Sample, seed int64) *GeneratorConfig {
	return &GeneratorConfig{
		Sample:     sample,
		TileWidth:  2,
		TileHeight: 2,
		Width:      25,
		Height:     15,
		Seed:       seed,
		MaxRetries: 10,
	}
}

// Generated is the output of a successful run
type Generated struct {
	Session  *Session
	Seed     int64 // Seed of the attempt that succeeded
	Attempts int
	Steps    int
}

// Generator runs sessions to completion, restarting from scratch with a new
// seed whenever propagation hits a contradiction. The solver itself never
// backtracks; restarting is a caller policy.
type Generator struct {
	config  *GeneratorConfig
	catalog *Catalog
	rules   *Rules
}

// NewGenerator builds the catalog and adjacency rules for config
func NewGenerator(config *GeneratorConfig) (*Generator, error) {
	cat, err := BuildCatalog(config.Sample, config.TileWidth, config.TileHeight)
	if err != nil {
		return nil, err
	}
	return &Generator{
		config:  config,
		catalog: cat,
		rules:   NewRules(cat),
	}, nil
}

// Catalog returns the generator's tile catalog
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Rules returns the generator's adjacency rules
func (g *Generator) Rules() *Rules {
	return g.rules
}

// Generate runs attempts until one finishes without contradiction
func (g *Generator) Generate() (*Generated, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		seed := g.config.Seed + int64(attempt*1000)
		session, err := NewSession(g.catalog, g.rules, g.config.Width, g.config.Height,
			rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}

		steps, err := session.Run(g.config.MaxSteps)
		if err != nil {
			if errors.Is(err, ErrContradiction) {
				lastErr = err
				continue
			}
			return nil, err
		}

		return &Generated{
			Session:  session,
			Seed:     seed,
			Attempts: attempt + 1,
			Steps:    steps,
		}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", g.config.MaxRetries+1, lastErr)
	}
	return nil, ErrNoSolution
}
